// Package ui holds the small ebiten widgets of the fleet viewer's control panel.
package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	titleHeight   = 30.0
	sectionHeight = 25.0
	labelHeight   = 15.0
	margin        = 10.0
)

// Widget is anything the panel can stack.
type Widget interface {
	Update()
	Draw(screen *ebiten.Image)
	// Height is the vertical room the widget needs below its label.
	Height() float64
	// MoveTo places the widget's top left corner.
	MoveTo(x, y float64)
}

type sliderWidget struct{ *Slider }

func (s sliderWidget) Height() float64     { return s.H + 25 }
func (s sliderWidget) MoveTo(x, y float64) { s.X, s.Y = x, y }

type checkboxWidget struct{ *Checkbox }

func (c checkboxWidget) Height() float64     { return c.Size + 5 }
func (c checkboxWidget) MoveTo(x, y float64) { c.X, c.Y = x, y }

type buttonWidget struct{ *Button }

func (b buttonWidget) Height() float64     { return b.Button.Height + 8 }
func (b buttonWidget) MoveTo(x, y float64) { b.X, b.Y = x, y }

type entry struct {
	label  string
	widget Widget
	// section starts a new header above this entry
	section string
}

// Panel stacks labelled widgets under section headers and scrolls with the
// mouse wheel.
type Panel struct {
	Title         string
	X, Y          float64
	Width, Height float64
	ScrollOffset  float64

	BGColor     color.RGBA
	BorderColor color.RGBA

	entries        []entry
	pendingSection string
}

func NewPanel(title string, x, y, width, height float64) *Panel {
	return &Panel{
		Title:       title,
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		BGColor:     color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor: color.RGBA{R: 100, G: 100, B: 110, A: 255},
	}
}

// Section puts a header above the next widget.
func (p *Panel) Section(title string) {
	p.pendingSection = title
}

func (p *Panel) add(label string, w Widget) {
	p.entries = append(p.entries, entry{label: label, widget: w, section: p.pendingSection})
	p.pendingSection = ""
	p.layout()
}

func (p *Panel) AddSlider(label string, min, max, value, step float64) *Slider {
	s := NewSlider(0, 0, p.Width-2*margin, label, min, max, 0)
	s.Step = step
	s.Value = s.clamp(value)
	p.add(label, sliderWidget{s})
	return s
}

func (p *Panel) AddCheckbox(label string, value bool) *Checkbox {
	c := NewCheckbox(0, 0, label, value)
	p.add(label, checkboxWidget{c})
	return c
}

func (p *Panel) AddButton(label string, onClick func()) *Button {
	b := NewButton(0, 0, p.Width-2*margin, 22, label, onClick)
	p.add("", buttonWidget{b})
	return b
}

// ContentHeight is the height of everything in the panel, unscrolled.
func (p *Panel) ContentHeight() float64 {
	h := titleHeight
	for _, e := range p.entries {
		if e.section != "" {
			h += sectionHeight
		}
		if e.label != "" {
			h += labelHeight
		}
		h += e.widget.Height()
	}
	return h
}

// layout places every widget for the current scroll offset.
func (p *Panel) layout() {
	y := p.Y + titleHeight - p.ScrollOffset
	for _, e := range p.entries {
		if e.section != "" {
			y += sectionHeight
		}
		if e.label != "" {
			y += labelHeight
		}
		e.widget.MoveTo(p.X+margin, y)
		y += e.widget.Height()
	}
}

// Scroll moves the content by dy wheel notches, within the content height.
func (p *Panel) Scroll(dy float64) {
	if dy == 0 {
		return
	}
	maxScroll := max(p.ContentHeight()-p.Height+40, 0)
	p.ScrollOffset = min(max(p.ScrollOffset-dy*20, 0), maxScroll)
	p.layout()
}

// Update handles input for all widgets
func (p *Panel) Update() {
	_, dy := ebiten.Wheel()
	p.Scroll(dy)
	for _, e := range p.entries {
		e.widget.Update()
	}
}

// Draw renders the panel and the visible widgets.
func (p *Panel) Draw(screen *ebiten.Image) {
	vector.FillRect(screen, float32(p.X), float32(p.Y), float32(p.Width), float32(p.Height), p.BGColor, true)
	vector.StrokeRect(screen, float32(p.X), float32(p.Y), float32(p.Width), float32(p.Height), 2, p.BorderColor, true)
	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+margin), int(p.Y+5))

	visible := func(y float64) bool { return y >= p.Y+titleHeight-5 && y <= p.Y+p.Height-15 }
	y := p.Y + titleHeight - p.ScrollOffset
	for _, e := range p.entries {
		if e.section != "" {
			if visible(y) {
				vector.FillRect(screen, float32(p.X+5), float32(y), float32(p.Width-10), 20, color.RGBA{R: 60, G: 60, B: 70, A: 255}, true)
				ebitenutil.DebugPrintAt(screen, e.section, int(p.X+margin), int(y+3))
			}
			y += sectionHeight
		}
		if e.label != "" {
			if visible(y) {
				ebitenutil.DebugPrintAt(screen, e.label, int(p.X+margin), int(y-2))
			}
			y += labelHeight
		}
		if visible(y) {
			e.widget.Draw(screen)
		}
		y += e.widget.Height()
	}
}
