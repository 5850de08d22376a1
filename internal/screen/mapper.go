// Package screen converts frame-pixel positions into screen-pixel cursor targets.
package screen

import (
	"errors"
	"fmt"
	"math"

	"github.com/dudu/gazecursor/internal/geom"
)

// ErrEmptyFrame is returned when either frame or screen has a non-positive dimension
var ErrEmptyFrame = errors.New("empty frame or screen size")

// Map rescales p from frame to screen space. Results are floored on both
// axes; Map never rounds.
func Map(p geom.FramePoint, frame, screen geom.Size) (geom.ScreenPoint, error) {
	if frame.Empty() || screen.Empty() {
		return geom.ScreenPoint{}, fmt.Errorf("frame %dx%d screen %dx%d: %w",
			frame.Width, frame.Height, screen.Width, screen.Height, ErrEmptyFrame)
	}
	if !p.Finite() {
		return geom.ScreenPoint{}, fmt.Errorf("non-finite point %v", p)
	}

	return geom.ScreenPoint{
		X: scaleAxis(p.X, frame.Width, screen.Width),
		Y: scaleAxis(p.Y, frame.Height, screen.Height),
	}, nil
}

// scaleAxis saturates to the int32 range before converting; float to int
// conversion of out-of-range values is implementation defined.
func scaleAxis(v float64, from, to int) int {
	f := math.Floor(v / float64(from) * float64(to))
	return int(min(max(f, math.MinInt32), math.MaxInt32))
}

// Clamp limits p to the visible area of a screen of the given size
func Clamp(p geom.ScreenPoint, screen geom.Size) geom.ScreenPoint {
	return geom.ScreenPoint{
		X: min(max(p.X, 0), max(screen.Width-1, 0)),
		Y: min(max(p.Y, 0), max(screen.Height-1, 0)),
	}
}
