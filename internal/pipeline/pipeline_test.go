package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/emotion"
	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/landmark"
	"github.com/dudu/gazecursor/internal/tracker"
)

type fakeExtractor struct {
	faces  []landmark.Face
	err    error
	closed bool
}

func (f *fakeExtractor) Detect(gocv.Mat) ([]landmark.Face, error) { return f.faces, f.err }
func (f *fakeExtractor) Close() error                             { f.closed = true; return nil }

type fakeObserver struct {
	calls int
	size  geom.Size
	err   error
}

func (f *fakeObserver) Observe(faces []landmark.Face, frame geom.Size) (tracker.Result, error) {
	f.calls++
	f.size = frame
	res := tracker.Result{FaceDetected: len(faces) > 0}
	if len(faces) > 0 {
		res.Face = faces[0]
	}
	return res, f.err
}

type fakeAnnotator struct {
	busy      bool
	submitted []landmark.BoundingBox
	closed    bool
}

func (f *fakeAnnotator) Submit(_ gocv.Mat, box landmark.BoundingBox) bool {
	if f.busy {
		return false
	}
	f.submitted = append(f.submitted, box)
	return true
}

func (f *fakeAnnotator) Latest() (emotion.Label, bool) {
	return emotion.Label{Name: "happiness", Confidence: 0.8}, len(f.submitted) > 0
}

func (f *fakeAnnotator) Close() error { f.closed = true; return nil }

var box = landmark.BoundingBox{X1: 10, Y1: 10, X2: 60, Y2: 70}

func newFrame(t *testing.T) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return frame
}

func TestNewRequiresStages(t *testing.T) {
	_, err := New(nil, &fakeObserver{})
	assert.Error(t, err)
	_, err = New(&fakeExtractor{}, nil)
	assert.Error(t, err)
}

func TestProcessPassesFrameSize(t *testing.T) {
	ext := &fakeExtractor{faces: []landmark.Face{{Box: box, Score: 0.9}}}
	obs := &fakeObserver{}
	p, err := New(ext, obs)
	require.NoError(t, err)

	frame := newFrame(t)
	res, err := p.Process(&frame)
	require.NoError(t, err)

	assert.True(t, res.FaceDetected)
	assert.Equal(t, geom.Size{Width: 640, Height: 480}, obs.size)
	assert.GreaterOrEqual(t, p.LastTiming().Total, p.LastTiming().Detection)

	_, ok := p.Emotion()
	assert.False(t, ok)
}

func TestProcessExtractionErrorSkipsTracker(t *testing.T) {
	boom := errors.New("boom")
	obs := &fakeObserver{}
	p, err := New(&fakeExtractor{err: boom}, obs)
	require.NoError(t, err)

	frame := newFrame(t)
	_, err = p.Process(&frame)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, obs.calls)
}

func TestProcessTrackingErrorKeepsResult(t *testing.T) {
	boom := errors.New("actuator gone")
	ext := &fakeExtractor{faces: []landmark.Face{{Box: box}}}
	p, err := New(ext, &fakeObserver{err: boom})
	require.NoError(t, err)

	frame := newFrame(t)
	res, err := p.Process(&frame)
	assert.ErrorIs(t, err, boom)
	assert.True(t, res.FaceDetected)
}

func TestProcessEmptyFrame(t *testing.T) {
	p, err := New(&fakeExtractor{}, &fakeObserver{})
	require.NoError(t, err)

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = p.Process(&empty)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestAnnotatorReceivesPrimaryFace(t *testing.T) {
	ann := &fakeAnnotator{}
	ext := &fakeExtractor{}
	p, err := New(ext, &fakeObserver{}, WithAnnotator(ann))
	require.NoError(t, err)
	frame := newFrame(t)

	_, err = p.Process(&frame)
	require.NoError(t, err)
	assert.Empty(t, ann.submitted, "no face, nothing to classify")

	ext.faces = []landmark.Face{{Box: box}}
	_, err = p.Process(&frame)
	require.NoError(t, err)
	assert.Equal(t, []landmark.BoundingBox{box}, ann.submitted)

	label, ok := p.Emotion()
	assert.True(t, ok)
	assert.Equal(t, "happiness", label.Name)

	ann.busy = true
	_, err = p.Process(&frame)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Dropped())

	require.NoError(t, p.Close())
	assert.True(t, ann.closed)
	assert.True(t, ext.closed)
}
