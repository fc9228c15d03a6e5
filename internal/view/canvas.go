package view

import (
	"math"
	"strings"

	"github.com/san-kum/rigid2d/internal/mathx"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas rasterizes world-space geometry into braille cells. Each cell packs
// a 2x4 dot grid, so the drawable resolution is (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune

	// World window mapped onto the canvas.
	center mathx.Vec2
	scale  float64 // dots per world unit
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		scale:  4.0,
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800 // empty braille char
		}
	}
	return c
}

// SetWindow centers the canvas on a world point at the given zoom.
func (c *Canvas) SetWindow(center mathx.Vec2, scale float64) {
	c.center = center
	if scale > 0 {
		c.scale = scale
	}
}

// project maps a world point to dot coordinates. The y axis flips: world up
// is screen up.
func (c *Canvas) project(p mathx.Vec2) (int, int) {
	dx := (p.X() - c.center.X()) * c.scale
	dy := (p.Y() - c.center.Y()) * c.scale
	return c.Width + int(math.Round(dx)), 2*c.Height - int(math.Round(dy))
}

func (c *Canvas) set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// Clear resets the canvas.
func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
}

// DrawSegment draws a world-space line using Bresenham's algorithm.
func (c *Canvas) DrawSegment(a, b mathx.Vec2) {
	x0, y0 := c.project(a)
	x1, y1 := c.project(b)

	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawCircle draws a world-space circle outline.
func (c *Canvas) DrawCircle(center mathx.Vec2, radius float64) {
	// Step count proportional to the projected circumference keeps the
	// outline closed at any zoom.
	steps := int(2*math.Pi*radius*c.scale) + 8
	prev := center.Add(mathx.V(radius, 0))
	for i := 1; i <= steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		p := center.Add(mathx.V(radius*math.Cos(a), radius*math.Sin(a)))
		c.DrawSegment(prev, p)
		prev = p
	}
}

// DrawPolygon draws a closed world-space loop through the given vertices.
func (c *Canvas) DrawPolygon(verts []mathx.Vec2) {
	if len(verts) < 2 {
		return
	}
	for i := range verts {
		c.DrawSegment(verts[i], verts[(i+1)%len(verts)])
	}
}

// Mark sets a single dot at a world point.
func (c *Canvas) Mark(p mathx.Vec2) {
	x, y := c.project(p)
	c.set(x, y)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
