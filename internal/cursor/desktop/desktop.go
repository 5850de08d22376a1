// Package desktop drives the real system pointer through robotgo.
package desktop

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/screen"
)

// Actuator moves the real system pointer
type Actuator struct {
	button string
}

// New creates a desktop actuator clicking with the given mouse button
func New(button string) *Actuator {
	if button == "" {
		button = "left"
	}
	return &Actuator{button: button}
}

// MoveTo moves the pointer, clamped to the main display
func (a *Actuator) MoveTo(p geom.ScreenPoint) error {
	size, err := a.ScreenSize()
	if err != nil {
		return err
	}
	p = screen.Clamp(p, size)
	robotgo.Move(p.X, p.Y)
	return nil
}

// Click performs a single click at the current pointer position
func (a *Actuator) Click() error {
	robotgo.Click(a.button, false)
	return nil
}

// ScreenSize queries the main display size
func (a *Actuator) ScreenSize() (geom.Size, error) {
	w, h := robotgo.GetScreenSize()
	size := geom.Size{Width: w, Height: h}
	if size.Empty() {
		return size, fmt.Errorf("display reported size %dx%d", w, h)
	}
	return size, nil
}
