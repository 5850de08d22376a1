package tracker

import (
	"fmt"

	"github.com/dudu/gazecursor/internal/eye"
	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/landmark"
)

type measurement struct {
	ratio  float64
	closed bool
	anchor eye.Anchor
}

type eyeReading struct {
	points []geom.FramePoint
	ratio  float64
	err    error
}

func (t *Tracker) readEye(face landmark.Face, side landmark.Side) eyeReading {
	lm, err := face.Eye(t.scheme, side)
	if err != nil {
		return eyeReading{err: err}
	}
	ratio, err := eye.OpennessRatio(lm)
	if err != nil {
		return eyeReading{err: fmt.Errorf("%s eye: %w", side, err)}
	}
	return eyeReading{points: lm.Points(), ratio: ratio}
}

// measure computes the closure signal and gaze anchor of a face. An eye
// whose ratio cannot be computed is left out of both.
func (t *Tracker) measure(face landmark.Face, frame geom.Size) (measurement, error) {
	left := t.readEye(face, landmark.Left)
	right := t.readEye(face, landmark.Right)

	ratio, err := eye.Pair(left.ratio, left.err, right.ratio, right.err)
	if err != nil {
		return measurement{}, err
	}

	anchor, err := eye.GazeAnchor(left.points, right.points)
	if err != nil {
		return measurement{}, err
	}

	m := measurement{ratio: ratio, anchor: anchor}

	switch t.metric {
	case MetricGap:
		gap, err := t.lidGap(face, frame, left.err == nil, right.err == nil)
		if err != nil {
			return measurement{}, err
		}
		m.closed = gap < t.tuning.GapThreshold
	default:
		m.closed = ratio < t.tuning.EARThreshold
	}
	return m, nil
}

func (t *Tracker) lidGap(face landmark.Face, frame geom.Size, useLeft, useRight bool) (float64, error) {
	read := func(side landmark.Side, use bool) (float64, error) {
		if !use {
			return 0, fmt.Errorf("%s eye: %w", side, eye.ErrDegenerateEye)
		}
		upper, lower, err := face.LidPair(t.scheme, side)
		if err != nil {
			return 0, err
		}
		return eye.LidGap(upper, lower, frame)
	}

	l, lerr := read(landmark.Left, useLeft)
	r, rerr := read(landmark.Right, useRight)
	return eye.Pair(l, lerr, r, rerr)
}
