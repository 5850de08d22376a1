// Package eye computes per-eye measurements from landmark subsets: the
// scale-invariant openness ratio, the lid gap and the gaze anchor.
package eye

import (
	"errors"
	"fmt"
	"math"

	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/landmark"
)

// minEyeWidth guards the ratio denominator against collapsed detections
const minEyeWidth = 1e-9

var (
	// ErrDegenerateEye marks landmarks that cannot produce a measurement
	ErrDegenerateEye = errors.New("degenerate eye geometry")
	// ErrNoEyes is returned when neither eye produced a measurement
	ErrNoEyes = errors.New("no usable eye")
)

// OpennessRatio computes (|p1-p5| + |p2-p4|) / (2 |p0-p3|).
//
// The result is dimensionless: it shrinks as the lid closes and does not
// depend on how far the face is from the camera.
func OpennessRatio(e landmark.EyeLandmarks) (float64, error) {
	a := geom.Distance(e[1], e[5])
	b := geom.Distance(e[2], e[4])
	c := geom.Distance(e[0], e[3])

	if math.IsNaN(c) || math.IsInf(c, 0) || c <= minEyeWidth {
		return 0, fmt.Errorf("eye width %v: %w", c, ErrDegenerateEye)
	}

	ratio := (a + b) / (2 * c)
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0, fmt.Errorf("openness ratio %v: %w", ratio, ErrDegenerateEye)
	}
	return ratio, nil
}

// LidGap returns the vertical distance between the lower and upper lid
// points as a fraction of frame height.
func LidGap(upper, lower geom.FramePoint, frame geom.Size) (float64, error) {
	if frame.Height <= 0 {
		return 0, fmt.Errorf("frame height %d: %w", frame.Height, ErrDegenerateEye)
	}
	if !upper.Finite() || !lower.Finite() {
		return 0, fmt.Errorf("non-finite lid point: %w", ErrDegenerateEye)
	}
	return (lower.Y - upper.Y) / float64(frame.Height), nil
}

// Pair averages a left and right measurement. When one eye failed the other
// is used on its own; when both failed the joined error wraps ErrNoEyes.
func Pair(left float64, leftErr error, right float64, rightErr error) (float64, error) {
	switch {
	case leftErr == nil && rightErr == nil:
		return (left + right) / 2, nil
	case leftErr == nil:
		return left, nil
	case rightErr == nil:
		return right, nil
	}
	return 0, errors.Join(ErrNoEyes, leftErr, rightErr)
}
