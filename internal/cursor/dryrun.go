package cursor

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/screen"
)

// DryRun logs pointer actions instead of performing them
type DryRun struct {
	size geom.Size
	log  logrus.FieldLogger

	mu     sync.Mutex
	pos    geom.ScreenPoint
	moves  int
	clicks int
}

// NewDryRun creates a dry-run actuator reporting a fixed screen size
func NewDryRun(size geom.Size, log logrus.FieldLogger) *DryRun {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &DryRun{size: size, log: log}
}

// MoveTo records the clamped position
func (d *DryRun) MoveTo(p geom.ScreenPoint) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pos = screen.Clamp(p, d.size)
	d.moves++
	d.log.WithFields(logrus.Fields{"x": d.pos.X, "y": d.pos.Y}).Debug("cursor move")
	return nil
}

// Click records a click at the last position
func (d *DryRun) Click() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.clicks++
	d.log.WithFields(logrus.Fields{"x": d.pos.X, "y": d.pos.Y, "clicks": d.clicks}).Info("cursor click")
	return nil
}

// ScreenSize returns the configured size
func (d *DryRun) ScreenSize() (geom.Size, error) {
	return d.size, nil
}

// Position returns the last recorded position
func (d *DryRun) Position() geom.ScreenPoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

// Counts returns how many moves and clicks were recorded
func (d *DryRun) Counts() (moves, clicks int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moves, d.clicks
}
