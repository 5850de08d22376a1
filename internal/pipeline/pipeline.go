package pipeline

import (
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/emotion"
	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/tracker"
)

// ErrEmptyFrame is returned for frames with no pixels
var ErrEmptyFrame = errors.New("empty frame")

// Timing holds performance timing information
type Timing struct {
	Detection time.Duration
	Tracking  time.Duration
	Total     time.Duration
}

// Pipeline runs one frame through landmark extraction and the tracker
type Pipeline struct {
	extractor  Extractor
	observer   Observer
	annotator  Annotator
	lastTiming Timing
	dropped    int
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithAnnotator hands the primary face of every frame to a
func WithAnnotator(a Annotator) Option {
	return func(p *Pipeline) { p.annotator = a }
}

// New creates a pipeline. The pipeline owns the extractor and annotator
// and closes them in Close.
func New(extractor Extractor, observer Observer, opts ...Option) (*Pipeline, error) {
	if extractor == nil {
		return nil, errors.New("pipeline needs an extractor")
	}
	if observer == nil {
		return nil, errors.New("pipeline needs an observer")
	}
	p := &Pipeline{extractor: extractor, observer: observer}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process detects landmarks in frame and feeds them to the tracker.
// Extraction errors leave the tracker untouched.
func (p *Pipeline) Process(frame *gocv.Mat) (tracker.Result, error) {
	if frame == nil || frame.Empty() {
		return tracker.Result{}, ErrEmptyFrame
	}

	totalStart := time.Now()
	var timing Timing

	detectStart := time.Now()
	faces, err := p.extractor.Detect(*frame)
	timing.Detection = time.Since(detectStart)
	if err != nil {
		timing.Total = time.Since(totalStart)
		p.lastTiming = timing
		return tracker.Result{}, fmt.Errorf("landmark extraction failed: %w", err)
	}

	trackStart := time.Now()
	size := geom.Size{Width: frame.Cols(), Height: frame.Rows()}
	res, err := p.observer.Observe(faces, size)
	timing.Tracking = time.Since(trackStart)

	if p.annotator != nil && res.FaceDetected && res.Face.Box.Area() > 0 {
		if !p.annotator.Submit(*frame, res.Face.Box) {
			p.dropped++
		}
	}

	timing.Total = time.Since(totalStart)
	p.lastTiming = timing

	if err != nil {
		return res, fmt.Errorf("tracking failed: %w", err)
	}
	return res, nil
}

// Emotion returns the latest emotion label, if an annotator is attached
// and has produced one
func (p *Pipeline) Emotion() (emotion.Label, bool) {
	if p.annotator == nil {
		return emotion.Label{}, false
	}
	return p.annotator.Latest()
}

// LastTiming returns timing from last Process call
func (p *Pipeline) LastTiming() Timing {
	return p.lastTiming
}

// Dropped returns how many face crops the annotator refused while busy
func (p *Pipeline) Dropped() int {
	return p.dropped
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	var errs []error

	if p.annotator != nil {
		if err := p.annotator.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.extractor.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
