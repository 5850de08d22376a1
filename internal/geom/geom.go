// Package geom holds the point and size types shared by the tracking stages.
//
// Frame-pixel and screen-pixel coordinates are separate types so that a
// frame point can only reach the cursor through screen.Map.
package geom

import "math"

// FramePoint is a position in frame-pixel space
type FramePoint struct {
	X, Y float64
}

// ScreenPoint is a position in screen-pixel space
type ScreenPoint struct {
	X, Y int
}

// Size is a width/height pair in pixels
type Size struct {
	Width, Height int
}

// Empty reports whether either dimension is not positive
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Distance returns the euclidean distance between two frame points
func Distance(a, b FramePoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Midpoint returns the point halfway between a and b
func Midpoint(a, b FramePoint) FramePoint {
	return FramePoint{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Scale multiplies both coordinates by k
func (p FramePoint) Scale(k float64) FramePoint {
	return FramePoint{X: p.X * k, Y: p.Y * k}
}

// Finite reports whether both coordinates are finite numbers
func (p FramePoint) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
