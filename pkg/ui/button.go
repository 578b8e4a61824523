package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Button runs OnClick once per press. A Toggled button is drawn highlighted,
// which the viewer uses for the active strategy.
type Button struct {
	Label   string
	X, Y    float64
	Width   float64
	Height  float64
	Toggled bool
	OnClick func()

	pressed bool

	BGColor     color.RGBA
	HoverColor  color.RGBA
	ActiveColor color.RGBA
}

func NewButton(x, y, width, height float64, label string, onClick func()) *Button {
	return &Button{
		Label:       label,
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		OnClick:     onClick,
		BGColor:     color.RGBA{R: 80, G: 120, B: 180, A: 255},
		HoverColor:  color.RGBA{R: 100, G: 150, B: 220, A: 255},
		ActiveColor: color.RGBA{R: 70, G: 170, B: 90, A: 255},
	}
}

func (b *Button) over(mx, my float64) bool {
	return mx >= b.X && mx <= b.X+b.Width && my >= b.Y && my <= b.Y+b.Height
}

// Press feeds one frame of pointer state and reports whether it fired.
// Holding the button down fires only once.
func (b *Button) Press(mx, my float64, down bool) bool {
	if !down || !b.over(mx, my) {
		b.pressed = false
		return false
	}
	if b.pressed {
		return false
	}
	b.pressed = true
	if b.OnClick != nil {
		b.OnClick()
	}
	return true
}

// Update checks for mouse interaction
func (b *Button) Update() {
	mx, my := ebiten.CursorPosition()
	b.Press(float64(mx), float64(my), ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
}

// Draw renders the button
func (b *Button) Draw(screen *ebiten.Image) {
	mx, my := ebiten.CursorPosition()
	bg := b.BGColor
	switch {
	case b.Toggled:
		bg = b.ActiveColor
	case b.over(float64(mx), float64(my)):
		bg = b.HoverColor
	}
	vector.FillRect(screen, float32(b.X), float32(b.Y), float32(b.Width), float32(b.Height), bg, true)
	vector.StrokeRect(screen, float32(b.X), float32(b.Y), float32(b.Width), float32(b.Height),
		2, color.RGBA{R: 200, G: 200, B: 200, A: 255}, true)
	ebitenutil.DebugPrintAt(screen, b.Label, int(b.X+6), int(b.Y+b.Height/2-8))
}
