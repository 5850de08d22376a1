// Package landmark describes the facial landmark layouts produced by the
// extractor and the per-eye subsets the tracking stages consume.
package landmark

import (
	"errors"
	"fmt"

	"github.com/dudu/gazecursor/internal/geom"
)

// ErrShortLandmarks is returned when a face carries fewer points than its scheme needs
var ErrShortLandmarks = errors.New("landmark set shorter than scheme")

// Side selects one eye, from the subject's point of view
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// EyeLandmarks is the six-point eye contour used by the openness ratio:
// outer corner, upper lid 1, upper lid 2, inner corner, lower lid 2, lower lid 1
type EyeLandmarks [6]geom.FramePoint

// Points returns the landmarks as a slice
func (e EyeLandmarks) Points() []geom.FramePoint {
	return e[:]
}

// BoundingBox represents a face bounding box
type BoundingBox struct {
	X1, Y1 float64 // top-left
	X2, Y2 float64 // bottom-right
}

// Width returns box width
func (b BoundingBox) Width() float64 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float64 {
	return b.Y2 - b.Y1
}

// Center returns box center point
func (b BoundingBox) Center() geom.FramePoint {
	return geom.FramePoint{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Area returns box area
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// Face is one detected face with its landmark points in frame-pixel space
type Face struct {
	Box    BoundingBox
	Points []geom.FramePoint
	Score  float64
}

// Eye extracts the six openness-ratio landmarks of one eye
func (f Face) Eye(s Scheme, side Side) (EyeLandmarks, error) {
	var eye EyeLandmarks
	idx := s.eyeIndices(side)
	for i, p := range idx {
		if p >= len(f.Points) {
			return eye, fmt.Errorf("%s eye index %d of %d points: %w", side, p, len(f.Points), ErrShortLandmarks)
		}
		eye[i] = f.Points[p]
	}
	return eye, nil
}

// LidPair returns the upper and lower lid points used by the gap test
func (f Face) LidPair(s Scheme, side Side) (upper, lower geom.FramePoint, err error) {
	pair := s.LeftLids
	if side == Right {
		pair = s.RightLids
	}
	if pair[0] >= len(f.Points) || pair[1] >= len(f.Points) {
		return upper, lower, fmt.Errorf("%s lid pair %v of %d points: %w", side, pair, len(f.Points), ErrShortLandmarks)
	}
	return f.Points[pair[0]], f.Points[pair[1]], nil
}

// BoxFromPoints computes the tight bounding box around a point set
func BoxFromPoints(points []geom.FramePoint) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := points[0].X, points[0].Y
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	return BoundingBox{X1: minX, Y1: minY, X2: maxX, Y2: maxY}
}
