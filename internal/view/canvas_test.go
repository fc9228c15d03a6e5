package view

import (
	"strings"
	"testing"

	"github.com/san-kum/rigid2d/internal/mathx"
)

func TestCanvasStartsEmpty(t *testing.T) {
	c := NewCanvas(10, 5)
	out := c.String()
	if strings.ContainsFunc(out, func(r rune) bool { return r != 0x2800 && r != '\n' }) {
		t.Error("fresh canvas contains set dots")
	}
	if strings.Count(out, "\n") != 5 {
		t.Errorf("canvas has %d rows, want 5", strings.Count(out, "\n"))
	}
}

func TestMarkSetsCenterDot(t *testing.T) {
	c := NewCanvas(10, 5)
	c.SetWindow(mathx.Vec2{}, 4.0)
	c.Mark(mathx.Vec2{})

	mid := c.Grid[2][5]
	if mid == 0x2800 {
		t.Error("world origin did not land in the center cell")
	}
}

func TestClearResets(t *testing.T) {
	c := NewCanvas(10, 5)
	c.SetWindow(mathx.Vec2{}, 4.0)
	c.DrawSegment(mathx.V(-1, 0), mathx.V(1, 0))
	c.Clear()
	for _, row := range c.Grid {
		for _, cell := range row {
			if cell != 0x2800 {
				t.Fatal("clear left dots behind")
			}
		}
	}
}

func TestOutOfWindowIgnored(t *testing.T) {
	c := NewCanvas(10, 5)
	c.SetWindow(mathx.Vec2{}, 4.0)
	c.Mark(mathx.V(1000, 1000))
	c.Mark(mathx.V(-1000, -1000))
	for _, row := range c.Grid {
		for _, cell := range row {
			if cell != 0x2800 {
				t.Fatal("out-of-window point rasterized")
			}
		}
	}
}

func TestDrawCircleStaysOnOutline(t *testing.T) {
	c := NewCanvas(20, 10)
	c.SetWindow(mathx.Vec2{}, 4.0)
	c.DrawCircle(mathx.Vec2{}, 2.0)

	set := 0
	for _, row := range c.Grid {
		for _, cell := range row {
			if cell != 0x2800 {
				set++
			}
		}
	}
	if set == 0 {
		t.Fatal("circle drew nothing")
	}
	// Interior of the circle must stay empty: the center cell holds at
	// most the dots of the outline, which never reaches it at this zoom.
	if c.Grid[5][10] != 0x2800 {
		t.Error("circle interior filled")
	}
}
