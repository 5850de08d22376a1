// Package ui shows the preview window with the diagnostic overlay and
// polls the keyboard for control keys.
package ui

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"
)

// Action is what a key press asks the frame loop to do
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionToggle
)

// Window manages the preview display
type Window struct {
	window     *gocv.Window
	name       string
	lastFrame  time.Time
	frameCount int
	fps        float64
}

// NewWindow creates a new preview window
func NewWindow(name string, width, height int) *Window {
	window := gocv.NewWindow(name)
	if width > 0 && height > 0 {
		window.ResizeWindow(width, height)
	}
	window.MoveWindow(100, 100)
	return &Window{
		window:    window,
		name:      name,
		lastFrame: time.Now(),
	}
}

// Show displays a frame and updates FPS counter
func (w *Window) Show(frame *gocv.Mat) {
	w.frameCount++
	now := time.Now()

	elapsed := now.Sub(w.lastFrame)
	if elapsed >= time.Second {
		w.fps = float64(w.frameCount) / elapsed.Seconds()
		w.frameCount = 0
		w.lastFrame = now
	}

	fpsText := fmt.Sprintf("FPS: %.1f", w.fps)
	gocv.PutText(frame, fpsText, image.Pt(10, 30),
		gocv.FontHersheyPlain, 2, color.RGBA{R: 0, G: 255, B: 0, A: 255}, 2)

	w.window.IMShow(*frame)
}

// PollKey waits up to delayMs for a key and maps it to an action.
// WaitKey must run every frame for the window to process events.
func (w *Window) PollKey(delayMs int) Action {
	return KeyAction(w.window.WaitKey(delayMs))
}

// KeyAction maps a key code to an action: q or ESC quit, space toggles control
func KeyAction(key int) Action {
	switch key {
	case 'q', 'Q', 27:
		return ActionQuit
	case ' ':
		return ActionToggle
	}
	return ActionNone
}

// FPS returns current frames per second
func (w *Window) FPS() float64 {
	return w.fps
}

// Close closes the window
func (w *Window) Close() error {
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}
