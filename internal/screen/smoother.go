package screen

import (
	"fmt"
	"math"

	"github.com/dudu/gazecursor/internal/geom"
)

// Smoother applies an exponential moving average to successive cursor
// targets. A step moves the cursor alpha of the way toward the new
// target, so a sudden jump settles after roughly 1/alpha frames.
type Smoother struct {
	alpha  float64
	x, y   float64
	primed bool
}

// NewSmoother creates a smoother. alpha must be in (0, 1]; 1 disables smoothing.
func NewSmoother(alpha float64) (*Smoother, error) {
	if math.IsNaN(alpha) || alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("smoothing alpha %v outside (0, 1]", alpha)
	}
	return &Smoother{alpha: alpha}, nil
}

// Step feeds the next target and returns the smoothed position.
// The first target after construction or Reset passes through unchanged.
func (s *Smoother) Step(target geom.ScreenPoint) geom.ScreenPoint {
	tx, ty := float64(target.X), float64(target.Y)
	if !s.primed {
		s.x, s.y = tx, ty
		s.primed = true
		return target
	}

	s.x += s.alpha * (tx - s.x)
	s.y += s.alpha * (ty - s.y)
	return geom.ScreenPoint{X: int(math.Floor(s.x)), Y: int(math.Floor(s.y))}
}

// Reset forgets the smoothed position, e.g. after the face is lost
func (s *Smoother) Reset() {
	s.primed = false
}

// Alpha returns the configured smoothing factor
func (s *Smoother) Alpha() float64 {
	return s.alpha
}
