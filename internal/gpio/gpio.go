// Package gpio delivers the edges of a receiver's data line with timestamps.
// The Linux implementation uses the GPIO character device, periph.io is an
// alternate backend and the fake replays scripted edges for tests.
package gpio

import (
	"time"

	"github.com/pkg/errors"
)

// EdgeHandler receives the line level after an edge and a monotonic
// timestamp. It is called from the source's event goroutine and must return
// quickly.
type EdgeHandler func(level bool, ts time.Duration)

// EdgeSource watches one input line for both edges.
type EdgeSource interface {
	// Start begins delivering edges to h. It fails if already started.
	Start(h EdgeHandler) error

	// Close stops delivery and releases the line.
	Close() error
}

// Line defaults (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 27
)

// Edge source errors.
var (
	// ErrStarted is returned by Start on a source that is already running.
	ErrStarted = errors.New("gpio: edge source already started")

	// ErrInvalidPin is the cause of a Start failure for a pin the backend
	// does not have.
	ErrInvalidPin = errors.New("gpio: invalid pin")
)

// Backends accepted by Open.
const (
	BackendCdev   = "gpiocdev"
	BackendPeriph = "periph"
)

// Open returns an unstarted edge source for the named backend.
func Open(backend, chip string, pin int) (EdgeSource, error) {
	switch backend {
	case BackendCdev, "":
		return NewCdevSource(chip, pin), nil
	case BackendPeriph:
		return NewPeriphSource(pin), nil
	default:
		return nil, errors.Errorf("unknown gpio backend %q (want %s or %s)", backend, BackendCdev, BackendPeriph)
	}
}
