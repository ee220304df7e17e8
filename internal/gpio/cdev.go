//go:build linux

package gpio

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warthog618/go-gpiocdev"
)

// CdevSource reads edges from the Linux GPIO character device. Timestamps
// are the kernel's event timestamps, so scheduling latency does not distort
// pulse widths.
type CdevSource struct {
	chip   string
	offset int

	mu      sync.Mutex
	line    *gpiocdev.Line
	handler EdgeHandler

	// Event goroutine only.
	seq   uint32
	level bool
}

// NewCdevSource creates a source for offset on chip. The line is requested
// by Start.
func NewCdevSource(chip string, offset int) *CdevSource {
	return &CdevSource{chip: chip, offset: offset}
}

// Start requests the line as an input with both-edge detection.
func (s *CdevSource) Start(h EdgeHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line != nil {
		return ErrStarted
	}
	if err := s.checkOffset(); err != nil {
		return err
	}

	s.handler = h
	line, err := gpiocdev.RequestLine(s.chip, s.offset,
		gpiocdev.AsInput,
		gpiocdev.WithBiasDisabled,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(s.onEvent))
	if err != nil {
		return errors.Wrapf(err, "request %s line %d", s.chip, s.offset)
	}
	s.line = line

	log.WithFields(log.Fields{"chip": s.chip, "pin": s.offset}).Info("gpio line requested")
	return nil
}

// checkOffset rejects an offset the chip does not have.
func (s *CdevSource) checkOffset() error {
	if s.offset < 0 {
		return errors.Wrapf(ErrInvalidPin, "%s line %d", s.chip, s.offset)
	}
	chip, err := gpiocdev.NewChip(s.chip)
	if err != nil {
		return errors.Wrapf(err, "open %s", s.chip)
	}
	defer chip.Close()
	if n := chip.Lines(); s.offset >= n {
		return errors.Wrapf(ErrInvalidPin, "%s has %d lines, not %d", s.chip, n, s.offset)
	}
	return nil
}

func (s *CdevSource) onEvent(evt gpiocdev.LineEvent) {
	level := evt.Type == gpiocdev.LineEventRisingEdge

	// The kernel dropped events: repeat the last level so the gap is seen
	// as a missed edge.
	if s.seq != 0 && evt.LineSeqno != s.seq+1 {
		s.handler(s.level, evt.Timestamp)
	}
	s.seq = evt.LineSeqno
	s.level = level

	s.handler(level, evt.Timestamp)
}

// Close releases the line. Safe to call more than once.
func (s *CdevSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line == nil {
		return nil
	}
	err := s.line.Close()
	s.line = nil
	if err != nil {
		return errors.Wrap(err, "close gpio line")
	}
	return nil
}
