// Package cursor defines the pointer actuator contract and a dry-run
// implementation. The robotgo-backed actuator lives in cursor/desktop.
package cursor

import (
	"fmt"
	"strings"

	"github.com/dudu/gazecursor/internal/geom"
)

// Actuator moves the pointer and clicks
type Actuator interface {
	MoveTo(p geom.ScreenPoint) error
	Click() error
	ScreenSize() (geom.Size, error)
}

// Backend selects the actuator implementation
type Backend string

const (
	BackendDesktop Backend = "desktop"
	BackendDryRun  Backend = "dryrun"
)

// ParseBackend validates a backend name
func ParseBackend(name string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(name)))
	if b != BackendDesktop && b != BackendDryRun {
		return "", fmt.Errorf("invalid cursor backend: %s (use 'desktop' or 'dryrun')", name)
	}
	return b, nil
}
