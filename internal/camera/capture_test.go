package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 480, cfg.Height)
	assert.True(t, cfg.Mirror)
	assert.Equal(t, 1, cfg.MaxReadFailures)
}

func TestReadAfterCloseFails(t *testing.T) {
	c := &Capture{cfg: DefaultConfig()}
	require.NoError(t, c.Close())

	frame := gocv.NewMat()
	defer frame.Close()

	ok, err := c.Read(&frame)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrAcquisition)
}
