package detector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/landmark"
)

func box(x1, y1, x2, y2 float64) landmark.BoundingBox {
	return landmark.BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func TestIOU(t *testing.T) {
	assert.InDelta(t, 1.0, iou(box(0, 0, 10, 10), box(0, 0, 10, 10)), 1e-12)
	assert.InDelta(t, 0.0, iou(box(0, 0, 10, 10), box(20, 20, 30, 30)), 1e-12)
	// 50 overlap over 150 union
	assert.InDelta(t, 1.0/3.0, iou(box(0, 0, 10, 10), box(5, 0, 15, 10)), 1e-12)
}

func TestNMS(t *testing.T) {
	faces := []landmark.Face{
		{Box: box(0, 0, 100, 100), Score: 0.7},
		{Box: box(5, 5, 105, 105), Score: 0.9},
		{Box: box(300, 300, 400, 400), Score: 0.8},
	}

	kept := nms(faces, 0.4)
	require.Len(t, kept, 2)
	assert.Equal(t, 0.9, kept[0].Score)
	assert.Equal(t, 0.8, kept[1].Score)

	assert.Empty(t, nms(nil, 0.4))
}

func TestDecodeBoxes(t *testing.T) {
	// 64px input, stride 32: 2x2 grid, one anchor per cell
	scores := []float32{0.1, 0.95, 0.2, 0.3}
	boxes := make([]float32, 16)
	copy(boxes[4:8], []float32{0.5, 0.25, 0.5, 1})

	faces := decodeBoxes([]levelOutput{{stride: 32, scores: scores, boxes: boxes}}, 64, 1, 0.5, 0.5, 1000, 1000)
	require.Len(t, faces, 1)

	// cell (1, 0): anchor at (32, 0); edges 16 left, 8 up, 16 right, 32 down; then / 0.5
	assert.Equal(t, box(32, 0, 96, 64), faces[0].Box)
	assert.InDelta(t, 0.95, faces[0].Score, 1e-6)
}

func TestDecodeBoxesClampsToFrame(t *testing.T) {
	scores := []float32{0.99}
	boxes := []float32{10, 10, 10, 10}

	faces := decodeBoxes([]levelOutput{{stride: 32, scores: scores, boxes: boxes}}, 32, 1, 0.5, 1, 200, 100)
	require.Len(t, faces, 1)
	assert.Equal(t, box(0, 0, 200, 100), faces[0].Box)
}

func TestCropProjectsBackToFrame(t *testing.T) {
	c := cropFor(box(100, 200, 300, 400), 192, 1.5)
	require.Greater(t, c.scale, 0.0)

	// crop centre and crop corners
	pts := c.project([]float32{0, 0, -1, -1, 1, 1}, 3, 192)
	require.Len(t, pts, 3)
	assert.InDelta(t, 200, pts[0].X, 1e-9)
	assert.InDelta(t, 300, pts[0].Y, 1e-9)
	assert.InDelta(t, 50, pts[1].X, 1e-9)
	assert.InDelta(t, 150, pts[1].Y, 1e-9)
	assert.InDelta(t, 350, pts[2].X, 1e-9)
	assert.InDelta(t, 450, pts[2].Y, 1e-9)
}

func TestCropRejectsEmptyBox(t *testing.T) {
	c := cropFor(landmark.BoundingBox{}, 192, 1.5)
	assert.Zero(t, c.scale)
}

func TestProjectTruncatesShortOutput(t *testing.T) {
	c := cropFor(box(0, 0, 10, 10), 192, 1.5)
	assert.Len(t, c.project([]float32{0, 0, 0}, 68, 192), 1)
}

type fakeFaces struct {
	faces []landmark.Face
	err   error
}

func (f *fakeFaces) Detect(gocv.Mat) ([]landmark.Face, error) {
	out := append([]landmark.Face(nil), f.faces...)
	return out, f.err
}

func (f *fakeFaces) Close() error { return nil }

type fakeLandmarks struct {
	points int
	calls  int
}

func (f *fakeLandmarks) Detect(_ gocv.Mat, face *landmark.Face) error {
	f.calls++
	face.Points = make([]geom.FramePoint, f.points)
	return nil
}

func (f *fakeLandmarks) Close() error { return nil }

func TestExtractor(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	faces := &fakeFaces{faces: []landmark.Face{
		{Box: box(0, 0, 10, 10), Score: 0.9},
		{Box: box(50, 50, 60, 60), Score: 0.8},
	}}
	lms := &fakeLandmarks{points: 68}

	ex := NewWithDetectors(faces, lms, landmark.IBUG68, 1)
	got, err := ex.Detect(img)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Points, 68)
	assert.Equal(t, 1, lms.calls)
	assert.NoError(t, ex.Close())
}

func TestExtractorNoFaces(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	ex := NewWithDetectors(&fakeFaces{}, &fakeLandmarks{points: 68}, landmark.IBUG68, 1)
	got, err := ex.Detect(img)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractorErrors(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	boom := errors.New("boom")
	ex := NewWithDetectors(&fakeFaces{err: boom}, &fakeLandmarks{points: 68}, landmark.IBUG68, 1)
	_, err := ex.Detect(img)
	assert.ErrorIs(t, err, boom)

	ex = NewWithDetectors(&fakeFaces{faces: []landmark.Face{{Box: box(0, 0, 5, 5)}}}, &fakeLandmarks{points: 5}, landmark.IBUG68, 1)
	_, err = ex.Detect(img)
	assert.Error(t, err)
}
