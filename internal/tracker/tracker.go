// Package tracker is the per-frame control core: it turns the landmarks of
// one frame into a cursor position and, through the blink debouncer, into
// clicks. It owns the ClickState of the tracked face and is driven by a
// single goroutine.
package tracker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dudu/gazecursor/internal/blink"
	"github.com/dudu/gazecursor/internal/cursor"
	"github.com/dudu/gazecursor/internal/eye"
	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/landmark"
	"github.com/dudu/gazecursor/internal/screen"
)

// Metric selects the closure test
type Metric string

const (
	// MetricEAR compares the averaged openness ratio with EARThreshold
	MetricEAR Metric = "ear"
	// MetricGap compares the averaged lid gap with GapThreshold
	MetricGap Metric = "gap"
)

// ParseMetric validates a metric name
func ParseMetric(name string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(name)))
	if m != MetricEAR && m != MetricGap {
		return "", fmt.Errorf("invalid eye metric: %s (use 'ear' or 'gap')", name)
	}
	return m, nil
}

// Tuning holds the settings that may change while tracking runs
type Tuning struct {
	EARThreshold float64
	GapThreshold float64
	ConsecFrames int
	Policy       string
	Cooldown     time.Duration
	// Smoothing is the EMA factor in (0, 1]; 0 disables smoothing
	Smoothing float64
}

// DefaultTuning returns the baseline thresholds
func DefaultTuning() Tuning {
	return Tuning{
		EARThreshold: 0.2,
		GapThreshold: 0.004,
		ConsecFrames: 3,
		Policy:       blink.PolicyCounter,
	}
}

// Config holds tracker configuration
type Config struct {
	Scheme landmark.Scheme
	Metric Metric
	Tuning Tuning
}

// FrameContext pairs the frame and screen sizes of one frame. It is built
// fresh for every frame so a resolution change is picked up immediately.
type FrameContext struct {
	Frame  geom.Size
	Screen geom.Size
}

// Event summarises one processed frame for observers
type Event struct {
	Frame        int64            `json:"frame"`
	Time         time.Time        `json:"time"`
	FaceDetected bool             `json:"face_detected"`
	Skipped      bool             `json:"skipped,omitempty"`
	Ratio        float64          `json:"ratio"`
	Closed       bool             `json:"closed"`
	Phase        string           `json:"phase"`
	Gaze         geom.FramePoint  `json:"gaze"`
	Cursor       geom.ScreenPoint `json:"cursor"`
	Click        bool             `json:"click"`
}

// Sink receives one Event per frame. Publish must not block.
type Sink interface {
	Publish(Event)
}

// Result is what one frame produced
type Result struct {
	FaceDetected bool
	// Skipped is set when the face was found but neither eye was measurable
	Skipped bool
	Face    landmark.Face
	Anchor  eye.Anchor
	// Ratio is the averaged openness ratio, zero when unavailable
	Ratio  float64
	Closed bool
	Cursor geom.ScreenPoint
	Moved  bool
	Click  bool
	State  blink.ClickState
}

// Option customises a Tracker
type Option func(*Tracker)

// WithSink publishes per-frame events to s
func WithSink(s Sink) Option {
	return func(t *Tracker) { t.sink = s }
}

// WithClock replaces the wall clock used for cooldown and event timestamps
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// Tracker drives the cursor from per-frame landmarks
type Tracker struct {
	scheme   landmark.Scheme
	metric   Metric
	tuning   Tuning
	policy   blink.Policy
	cooldown *blink.Cooldown
	smoother *screen.Smoother
	actuator cursor.Actuator
	sink     Sink
	log      logrus.FieldLogger
	now      func() time.Time

	state   blink.ClickState
	enabled bool
	frames  int64
}

// New creates a tracker actuating through act
func New(cfg Config, act cursor.Actuator, log logrus.FieldLogger, opts ...Option) (*Tracker, error) {
	if act == nil {
		return nil, errors.New("tracker needs an actuator")
	}
	if cfg.Scheme.Points == 0 {
		return nil, errors.New("tracker needs a landmark scheme")
	}
	metric, err := ParseMetric(string(cfg.Metric))
	if err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}

	t := &Tracker{
		scheme:   cfg.Scheme,
		metric:   metric,
		actuator: act,
		log:      log.WithField("component", "tracker"),
		now:      time.Now,
		enabled:  true,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.cooldown = blink.NewCooldownWithClock(0, t.now)

	if err := t.SetTuning(cfg.Tuning); err != nil {
		return nil, err
	}
	return t, nil
}

// SetTuning applies new thresholds. The click state and smoothed position
// are kept unless the policy itself changes.
func (t *Tracker) SetTuning(tun Tuning) error {
	if tun.EARThreshold <= 0 {
		return fmt.Errorf("ear threshold must be positive, got %v", tun.EARThreshold)
	}
	if tun.GapThreshold <= 0 {
		return fmt.Errorf("gap threshold must be positive, got %v", tun.GapThreshold)
	}
	if tun.Cooldown < 0 {
		return fmt.Errorf("click cooldown must not be negative, got %v", tun.Cooldown)
	}
	policy, err := blink.NewPolicy(tun.Policy, tun.ConsecFrames)
	if err != nil {
		return err
	}

	var smoother *screen.Smoother
	if tun.Smoothing > 0 {
		if t.smoother != nil && t.smoother.Alpha() == tun.Smoothing {
			smoother = t.smoother
		} else if smoother, err = screen.NewSmoother(tun.Smoothing); err != nil {
			return err
		}
	}

	if t.policy != nil && t.policy.Name() != policy.Name() {
		t.state = blink.ClickState{}
	}
	t.policy = policy
	t.smoother = smoother
	t.cooldown.SetInterval(tun.Cooldown)
	t.tuning = tun
	return nil
}

// Tuning returns the active tuning
func (t *Tracker) Tuning() Tuning {
	return t.tuning
}

// SetEnabled pauses or resumes cursor actuation. Tracking and debouncing
// continue while paused; clicks that fire while paused are dropped.
func (t *Tracker) SetEnabled(enabled bool) {
	t.enabled = enabled
}

// Enabled reports whether the tracker actuates the cursor
func (t *Tracker) Enabled() bool {
	return t.enabled
}

// State returns the current click state
func (t *Tracker) State() blink.ClickState {
	return t.state
}

// Reset returns the tracker to its idle state
func (t *Tracker) Reset() {
	t.state = blink.ClickState{}
	if t.smoother != nil {
		t.smoother.Reset()
	}
}

// Observe processes the faces detected in one frame of the given size.
// Errors come from the actuator; the click state is committed before
// actuation and only after the eye metrics were computed.
func (t *Tracker) Observe(faces []landmark.Face, frame geom.Size) (Result, error) {
	t.frames++

	if len(faces) == 0 {
		t.Reset()
		res := Result{State: t.state}
		t.publish(res)
		return res, nil
	}

	face := primaryFace(faces)
	res := Result{FaceDetected: true, Face: face}

	m, err := t.measure(face, frame)
	if err != nil {
		t.log.WithError(err).Debug("skipping frame with unusable eyes")
		res.Skipped = true
		res.State = t.state
		t.publish(res)
		return res, nil
	}
	res.Anchor = m.anchor
	res.Ratio = m.ratio
	res.Closed = m.closed

	var fire bool
	t.state, fire = t.policy.Step(t.state, blink.Observation{Detected: true, Closed: m.closed})
	res.State = t.state

	err = t.actuate(&res, frame, fire)
	t.publish(res)
	return res, err
}

// actuate moves the cursor and delivers a click when fire is set. The click
// is attempted even when the move fails, since the debouncer has already
// consumed the episode.
func (t *Tracker) actuate(res *Result, frame geom.Size, fire bool) error {
	var errs []error
	if err := t.move(res, frame); err != nil {
		errs = append(errs, err)
	}

	if fire && t.enabled && t.cooldown.Allow() {
		if err := t.actuator.Click(); err != nil {
			errs = append(errs, fmt.Errorf("click: %w", err))
		} else {
			res.Click = true
			t.log.WithFields(logrus.Fields{"x": res.Cursor.X, "y": res.Cursor.Y, "ratio": res.Ratio}).Info("blink click")
		}
	}
	return errors.Join(errs...)
}

func (t *Tracker) move(res *Result, frame geom.Size) error {
	scr, err := t.actuator.ScreenSize()
	if err != nil {
		return fmt.Errorf("screen size: %w", err)
	}
	fc := FrameContext{Frame: frame, Screen: scr}

	target, err := screen.Map(res.Anchor.Point, fc.Frame, fc.Screen)
	if err != nil {
		return fmt.Errorf("map gaze: %w", err)
	}
	if t.smoother != nil {
		target = t.smoother.Step(target)
	}
	res.Cursor = target

	if !t.enabled {
		return nil
	}
	if err := t.actuator.MoveTo(target); err != nil {
		return fmt.Errorf("move cursor: %w", err)
	}
	res.Moved = true
	return nil
}

func (t *Tracker) publish(res Result) {
	if t.sink == nil {
		return
	}
	t.sink.Publish(Event{
		Frame:        t.frames,
		Time:         t.now(),
		FaceDetected: res.FaceDetected,
		Skipped:      res.Skipped,
		Ratio:        res.Ratio,
		Closed:       res.Closed,
		Phase:        res.State.Phase.String(),
		Gaze:         res.Anchor.Point,
		Cursor:       res.Cursor,
		Click:        res.Click,
	})
}

// primaryFace picks the highest scoring face, preferring the larger box on ties
func primaryFace(faces []landmark.Face) landmark.Face {
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Score > best.Score || (f.Score == best.Score && f.Box.Area() > best.Box.Area()) {
			best = f
		}
	}
	return best
}
