package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

var (
	checkboxBorder = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	checkboxHover  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	checkboxMark   = color.RGBA{R: 100, G: 200, B: 100, A: 255}
)

// Checkbox is an on/off switch drawn as a square with a check mark.
type Checkbox struct {
	Label string
	Value bool
	X, Y  float64
	Size  float64

	hovered bool
	held    bool // pointer went down inside and is still down
}

func NewCheckbox(x, y float64, label string, value bool) *Checkbox {
	return &Checkbox{Label: label, Value: value, X: x, Y: y, Size: 16}
}

func (c *Checkbox) contains(mx, my float64) bool {
	return mx >= c.X && mx <= c.X+c.Size && my >= c.Y && my <= c.Y+c.Size
}

// Toggle feeds one frame of pointer state; a press inside flips the value
// once until the pointer is released.
func (c *Checkbox) Toggle(mx, my float64, down bool) {
	c.hovered = c.contains(mx, my)
	switch {
	case !down:
		c.held = false
	case c.hovered && !c.held:
		c.Value = !c.Value
		c.held = true
	}
}

func (c *Checkbox) Update() {
	mx, my := ebiten.CursorPosition()
	c.Toggle(float64(mx), float64(my), ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
}

func (c *Checkbox) Draw(screen *ebiten.Image) {
	x, y, s := float32(c.X), float32(c.Y), float32(c.Size)
	border := checkboxBorder
	if c.hovered {
		border = checkboxHover
	}
	vector.StrokeRect(screen, x, y, s, s, 2, border, true)
	if !c.Value {
		return
	}
	// check mark
	vector.StrokeLine(screen, x+s*0.2, y+s*0.55, x+s*0.42, y+s*0.78, 2.5, checkboxMark, true)
	vector.StrokeLine(screen, x+s*0.42, y+s*0.78, x+s*0.82, y+s*0.25, 2.5, checkboxMark, true)
}
