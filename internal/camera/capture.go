// Package camera reads frames from a webcam.
package camera

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/dudu/gazecursor/internal/geom"
)

// ErrAcquisition is returned once the device stops delivering frames
var ErrAcquisition = errors.New("frame acquisition failed")

// Config holds capture settings
type Config struct {
	DeviceID  int
	Width     int
	Height    int
	TargetFPS int
	// Mirror flips frames horizontally so moving the head right moves the cursor right
	Mirror bool
	// MaxReadFailures is the number of consecutive failed reads tolerated before ErrAcquisition
	MaxReadFailures int
}

// DefaultConfig returns 640x480 mirrored capture from device 0
func DefaultConfig() Config {
	return Config{
		Width:           640,
		Height:          480,
		TargetFPS:       30,
		Mirror:          true,
		MaxReadFailures: 1,
	}
}

// Capture manages webcam capture
type Capture struct {
	webcam   *gocv.VideoCapture
	cfg      Config
	width    int
	height   int
	failures int
	mu       sync.Mutex
}

// NewCapture opens the configured device
func NewCapture(cfg Config) (*Capture, error) {
	webcam, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", cfg.DeviceID, err)
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.TargetFPS > 0 {
		webcam.Set(gocv.VideoCaptureFPS, float64(cfg.TargetFPS))
	}
	if cfg.MaxReadFailures < 1 {
		cfg.MaxReadFailures = 1
	}

	// camera may not support the requested resolution
	return &Capture{
		webcam: webcam,
		cfg:    cfg,
		width:  int(webcam.Get(gocv.VideoCaptureFrameWidth)),
		height: int(webcam.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// Read captures the next frame into frame, mirrored if configured.
// It returns ErrAcquisition after MaxReadFailures consecutive empty reads;
// a tolerated failure returns false with a nil error.
func (c *Capture) Read(frame *gocv.Mat) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return false, fmt.Errorf("camera closed: %w", ErrAcquisition)
	}

	if !c.webcam.Read(frame) || frame.Empty() {
		c.failures++
		if c.failures >= c.cfg.MaxReadFailures {
			return false, fmt.Errorf("camera %d: %d consecutive empty reads: %w", c.cfg.DeviceID, c.failures, ErrAcquisition)
		}
		return false, nil
	}
	c.failures = 0

	if c.cfg.Mirror {
		gocv.Flip(*frame, frame, 1)
	}
	return true, nil
}

// Size returns the negotiated frame size
func (c *Capture) Size() geom.Size {
	return geom.Size{Width: c.width, Height: c.height}
}

// Close releases the camera
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam != nil {
		err := c.webcam.Close()
		c.webcam = nil
		return err
	}
	return nil
}
