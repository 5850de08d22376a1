// Package blink turns a per-frame "eye closed" signal into discrete click
// events. Debouncing is a pure step function over an explicit ClickState
// that the caller carries from frame to frame.
package blink

import (
	"fmt"
	"strings"
)

// Phase is the stage of a closure episode
type Phase int

const (
	// Idle: eyes open or no face
	Idle Phase = iota
	// Closing: eyes closed but the episode has not qualified for a click yet
	Closing
	// Armed: the episode qualified; the click is pending or already latched
	Armed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Closing:
		return "closing"
	case Armed:
		return "armed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ClickState is the debouncer state for one tracked face
type ClickState struct {
	Phase Phase
	// Closed counts consecutive closed frames in the current episode
	Closed int
}

// Observation is what one frame contributes to the debouncer
type Observation struct {
	Detected bool
	Closed   bool
}

// Policy advances a ClickState by one frame and reports whether a click fires
type Policy interface {
	Step(s ClickState, obs Observation) (ClickState, bool)
	Name() string
}

// CounterPolicy requires ConsecFrames consecutive closed frames and fires
// once on the frame the eye reopens.
type CounterPolicy struct {
	ConsecFrames int
}

// Name returns the policy identifier used in configuration
func (CounterPolicy) Name() string { return PolicyCounter }

// Step implements Policy
func (p CounterPolicy) Step(s ClickState, obs Observation) (ClickState, bool) {
	if !obs.Detected {
		return ClickState{}, false
	}

	if obs.Closed {
		s.Closed++
		if s.Closed >= max(p.ConsecFrames, 1) {
			s.Phase = Armed
		} else {
			s.Phase = Closing
		}
		return s, false
	}

	return ClickState{}, s.Phase == Armed
}

// LatchPolicy fires on the first closed frame of an episode and stays
// latched until the eye is measured open. There is no frame count, so a
// single noisy closed frame is enough to click.
type LatchPolicy struct{}

// Name returns the policy identifier used in configuration
func (LatchPolicy) Name() string { return PolicyLatch }

// Step implements Policy
func (LatchPolicy) Step(s ClickState, obs Observation) (ClickState, bool) {
	if !obs.Detected || !obs.Closed {
		return ClickState{}, false
	}

	fire := s.Phase != Armed
	s.Phase = Armed
	s.Closed++
	return s, fire
}

const (
	PolicyCounter = "counter"
	PolicyLatch   = "latch"
)

// NewPolicy builds a policy by its configuration name
func NewPolicy(name string, consecFrames int) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyCounter, "":
		if consecFrames < 1 {
			return nil, fmt.Errorf("consec frames must be at least 1, got %d", consecFrames)
		}
		return CounterPolicy{ConsecFrames: consecFrames}, nil
	case PolicyLatch:
		return LatchPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown click policy %q", name)
}
