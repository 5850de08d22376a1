package eye

import (
	"fmt"

	"github.com/dudu/gazecursor/internal/geom"
)

// Centroid returns the mean position of a point set
func Centroid(points []geom.FramePoint) (geom.FramePoint, error) {
	if len(points) == 0 {
		return geom.FramePoint{}, fmt.Errorf("empty point set: %w", ErrDegenerateEye)
	}

	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	c := geom.FramePoint{X: sumX / float64(len(points)), Y: sumY / float64(len(points))}
	if !c.Finite() {
		return geom.FramePoint{}, fmt.Errorf("non-finite centroid: %w", ErrDegenerateEye)
	}
	return c, nil
}

// Anchor is the gaze anchor of one frame together with the eye centroids it came from
type Anchor struct {
	Point       geom.FramePoint
	LeftCenter  geom.FramePoint
	RightCenter geom.FramePoint
	LeftOK      bool
	RightOK     bool
}

// GazeAnchor returns the midpoint of the two eye centroids. If only one eye
// has usable points its centroid is the anchor.
func GazeAnchor(left, right []geom.FramePoint) (Anchor, error) {
	var a Anchor
	var leftErr, rightErr error
	a.LeftCenter, leftErr = Centroid(left)
	a.RightCenter, rightErr = Centroid(right)
	a.LeftOK = leftErr == nil
	a.RightOK = rightErr == nil

	switch {
	case a.LeftOK && a.RightOK:
		a.Point = geom.Midpoint(a.LeftCenter, a.RightCenter)
	case a.LeftOK:
		a.Point = a.LeftCenter
	case a.RightOK:
		a.Point = a.RightCenter
	default:
		return a, ErrNoEyes
	}
	return a, nil
}
