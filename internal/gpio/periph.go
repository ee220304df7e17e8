package gpio

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgePoll bounds how long the watch loop blocks before checking for Close.
const edgePoll = 100 * time.Millisecond

// PeriphSource reads edges through periph.io. Timestamps are taken in user
// space after WaitForEdge returns, so they carry scheduling jitter; prefer
// CdevSource where it is available.
type PeriphSource struct {
	name string

	mu    sync.Mutex
	pin   pgpio.PinIO
	done  chan struct{}
	wg    sync.WaitGroup
	start time.Time
}

// NewPeriphSource creates a source for a BCM pin number.
func NewPeriphSource(pin int) *PeriphSource {
	return &PeriphSource{name: strconv.Itoa(pin)}
}

// Start initialises the periph host drivers and starts the watch goroutine.
func (s *PeriphSource) Start(h EdgeHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pin != nil {
		return ErrStarted
	}
	if s.name[0] == '-' {
		return errors.Wrapf(ErrInvalidPin, "pin %s", s.name)
	}

	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "initialize periph host")
	}
	pin := gpioreg.ByName(s.name)
	if pin == nil {
		return errors.Wrapf(ErrInvalidPin, "unknown gpio pin %q", s.name)
	}
	if err := pin.In(pgpio.Float, pgpio.BothEdges); err != nil {
		return errors.Wrapf(err, "configure pin %s", s.name)
	}

	s.pin = pin
	s.done = make(chan struct{})
	s.start = time.Now()
	s.wg.Add(1)
	go s.watch(pin, h)

	log.WithField("pin", s.name).Info("periph edge watch started")
	return nil
}

func (s *PeriphSource) watch(pin pgpio.PinIO, h EdgeHandler) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		default:
		}
		if pin.WaitForEdge(edgePoll) {
			h(pin.Read() == pgpio.High, time.Since(s.start))
		}
	}
}

// Close stops the watch goroutine and halts the pin.
func (s *PeriphSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pin == nil {
		return nil
	}
	close(s.done)
	s.wg.Wait()
	err := s.pin.Halt()
	s.pin = nil
	if err != nil {
		return errors.Wrapf(err, "halt pin %s", s.name)
	}
	return nil
}
