package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlider_ValueAt(t *testing.T) {
	s := NewSlider(10, 0, 100, "agents", 8, 16, 12)
	s.Step = 1
	tests := []struct {
		name string
		mx   float64
		want float64
	}{
		{"left edge", 10, 8},
		{"right edge", 110, 16},
		{"before the track", -50, 8},
		{"past the track", 500, 16},
		{"snaps to step", 10 + 100*(3.4/8), 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.ValueAt(tt.mx), 1e-9)
		})
	}
	assert.Equal(t, 12, s.Int())
}

func TestButton_FiresOncePerPress(t *testing.T) {
	clicks := 0
	b := NewButton(0, 0, 50, 20, "go", func() { clicks++ })
	assert.True(t, b.Press(10, 10, true))
	assert.False(t, b.Press(10, 10, true), "held down")
	assert.False(t, b.Press(10, 10, false))
	assert.False(t, b.Press(80, 10, true), "outside")
	assert.True(t, b.Press(10, 10, true))
	assert.Equal(t, 2, clicks)
}

func TestCheckbox_Toggle(t *testing.T) {
	c := NewCheckbox(0, 0, "goals", false)
	c.Toggle(5, 5, true)
	c.Toggle(5, 5, true)
	assert.True(t, c.Value)
	c.Toggle(5, 5, false)
	c.Toggle(5, 5, true)
	assert.False(t, c.Value)
}

func TestPanel_Layout(t *testing.T) {
	p := NewPanel("Fleet", 10, 10, 200, 120)
	p.Section("Fleet")
	s := p.AddSlider("Agents", 8, 16, 12, 1)
	c := p.AddCheckbox("Show goals", true)
	b := p.AddButton("Redeploy", nil)

	assert.InDelta(t, 20, s.X, 1e-9)
	assert.InDelta(t, 10+titleHeight+sectionHeight+labelHeight, s.Y, 1e-9)
	assert.InDelta(t, s.Y+s.H+25+labelHeight, c.Y, 1e-9)
	assert.InDelta(t, c.Y+c.Size+5, b.Y, 1e-9)
	assert.InDelta(t, p.Y+p.ContentHeight(), b.Y+b.Height+8, 1e-9)

	p.Scroll(-1)
	assert.InDelta(t, 20, p.ScrollOffset, 1e-9)
	assert.InDelta(t, 10+titleHeight+sectionHeight+labelHeight-20, s.Y, 1e-9)
	p.Scroll(-100)
	assert.InDelta(t, p.ContentHeight()-p.Height+40, p.ScrollOffset, 1e-9, "clamped to the content")
	p.Scroll(100)
	assert.Zero(t, p.ScrollOffset)
}
