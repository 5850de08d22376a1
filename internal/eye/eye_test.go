package eye

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/landmark"
)

// syntheticEye builds a 30px wide eye whose lids sit halfOpen px above and below the corner line
func syntheticEye(halfOpen float64) landmark.EyeLandmarks {
	return landmark.EyeLandmarks{
		{X: 0, Y: 0},
		{X: 10, Y: -halfOpen},
		{X: 20, Y: -halfOpen},
		{X: 30, Y: 0},
		{X: 20, Y: halfOpen},
		{X: 10, Y: halfOpen},
	}
}

func scaled(e landmark.EyeLandmarks, k float64) landmark.EyeLandmarks {
	var out landmark.EyeLandmarks
	for i, p := range e {
		out[i] = p.Scale(k)
	}
	return out
}

func TestOpennessRatioOpenEye(t *testing.T) {
	ratio, err := OpennessRatio(syntheticEye(5))
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, ratio, 1e-9)
	assert.Greater(t, ratio, 0.2)
}

func TestOpennessRatioClosedEye(t *testing.T) {
	ratio, err := OpennessRatio(syntheticEye(0))
	require.NoError(t, err)
	assert.InDelta(t, 0, ratio, 1e-9)
}

func TestOpennessRatioDecreasesAsLidCloses(t *testing.T) {
	prev := math.Inf(1)
	for _, half := range []float64{8, 6, 4, 2, 1, 0} {
		ratio, err := OpennessRatio(syntheticEye(half))
		require.NoError(t, err)
		assert.Less(t, ratio, prev)
		prev = ratio
	}
}

func TestOpennessRatioScaleInvariant(t *testing.T) {
	base, err := OpennessRatio(syntheticEye(4))
	require.NoError(t, err)

	for _, k := range []float64{0.01, 0.5, 2, 17.3, 1000} {
		ratio, err := OpennessRatio(scaled(syntheticEye(4), k))
		require.NoError(t, err)
		assert.InDelta(t, base, ratio, 1e-9, "scale %v", k)
	}
}

func TestOpennessRatioDegenerate(t *testing.T) {
	var collapsed landmark.EyeLandmarks
	_, err := OpennessRatio(collapsed)
	assert.True(t, errors.Is(err, ErrDegenerateEye))

	nan := syntheticEye(4)
	nan[3] = geom.FramePoint{X: math.NaN(), Y: 0}
	_, err = OpennessRatio(nan)
	assert.True(t, errors.Is(err, ErrDegenerateEye))
}

func TestLidGap(t *testing.T) {
	gap, err := LidGap(geom.FramePoint{X: 10, Y: 100}, geom.FramePoint{X: 10, Y: 112}, geom.Size{Width: 640, Height: 480})
	require.NoError(t, err)
	assert.InDelta(t, 0.025, gap, 1e-12)

	_, err = LidGap(geom.FramePoint{}, geom.FramePoint{}, geom.Size{})
	assert.True(t, errors.Is(err, ErrDegenerateEye))
}

func TestPair(t *testing.T) {
	bad := errors.New("bad")

	v, err := Pair(0.2, nil, 0.4, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, v, 1e-12)

	v, err = Pair(0, bad, 0.4, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.4, v)

	v, err = Pair(0.2, nil, 0, bad)
	require.NoError(t, err)
	assert.Equal(t, 0.2, v)

	_, err = Pair(0, bad, 0, bad)
	assert.True(t, errors.Is(err, ErrNoEyes))
}

func TestCentroid(t *testing.T) {
	c, err := Centroid(syntheticEye(5).Points())
	require.NoError(t, err)
	assert.InDelta(t, 15, c.X, 1e-12)
	assert.InDelta(t, 0, c.Y, 1e-12)

	_, err = Centroid(nil)
	assert.True(t, errors.Is(err, ErrDegenerateEye))
}

func TestGazeAnchor(t *testing.T) {
	left := []geom.FramePoint{{X: 100, Y: 200}, {X: 120, Y: 220}}
	right := []geom.FramePoint{{X: 300, Y: 200}, {X: 320, Y: 240}}

	tests := []struct {
		name        string
		left, right []geom.FramePoint
		want        geom.FramePoint
		wantErr     error
	}{
		{"both eyes", left, right, geom.FramePoint{X: 210, Y: 215}, nil},
		{"left only", left, nil, geom.FramePoint{X: 110, Y: 210}, nil},
		{"right only", nil, right, geom.FramePoint{X: 310, Y: 220}, nil},
		{"no eyes", nil, nil, geom.FramePoint{}, ErrNoEyes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := GazeAnchor(tt.left, tt.right)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Point)
			assert.True(t, a.Point.Finite())
		})
	}
}
