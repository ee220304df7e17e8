// Package receiver installs the decoding pipeline on an input line: the
// capture producer on the edge source and the dispatch task behind it.
package receiver

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/rf433-receiver/internal/decoder"
	"github.com/sweeney/rf433-receiver/internal/gpio"
	"github.com/sweeney/rf433-receiver/internal/pipeline"
)

// Install errors.
var (
	ErrInvalidPin       = gpio.ErrInvalidPin
	ErrAlreadyInstalled = errors.New("receiver: already installed")
)

// Config selects the input line and sizes the queues. Zero values keep the
// defaults.
type Config struct {
	Pin            int
	PulseQueueSize int
	EventQueueSize int
	EventTimeout   time.Duration
	Events         decoder.ActionMask
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Pin:            gpio.DefaultPin,
		PulseQueueSize: pipeline.DefaultPulseQueueSize,
		EventQueueSize: pipeline.DefaultEventQueueSize,
		EventTimeout:   pipeline.DefaultEventTimeout,
		Events:         decoder.MaskAll,
	}
}

// Stats merges the capture and dispatch counters.
type Stats struct {
	pipeline.CaptureStats
	pipeline.DispatchStats
}

// Receiver owns one installed pipeline at a time.
type Receiver struct {
	cfg      Config
	registry *decoder.Registry

	mu         sync.Mutex
	installed  bool
	source     gpio.EdgeSource
	capture    *pipeline.Capture
	dispatcher *pipeline.Dispatcher
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates an uninstalled receiver.
func New(cfg Config, registry *decoder.Registry) *Receiver {
	return &Receiver{cfg: cfg, registry: registry}
}

// Install creates the queues, starts the dispatch task and attaches the
// capture producer to source. Events are available from Events until Close.
func (r *Receiver) Install(ctx context.Context, source gpio.EdgeSource) error {
	if r.cfg.Pin < 0 {
		return errors.Wrapf(ErrInvalidPin, "pin %d", r.cfg.Pin)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.installed {
		return ErrAlreadyInstalled
	}

	pulses := pipeline.NewPulseQueue(r.cfg.PulseQueueSize)
	capture := pipeline.NewCapture(pulses)
	dispatcher := pipeline.NewDispatcher(pulses, r.registry, pipeline.DispatchConfig{
		EventQueueSize: r.cfg.EventQueueSize,
		EventTimeout:   r.cfg.EventTimeout,
		Events:         r.cfg.Events,
	})

	if err := source.Start(capture.OnEdge); err != nil {
		return errors.Wrap(err, "start edge source")
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		dispatcher.Run(runCtx)
	}()

	r.installed = true
	r.source = source
	r.capture = capture
	r.dispatcher = dispatcher
	r.cancel = cancel
	r.done = done

	events := r.cfg.Events
	if events == 0 {
		events = decoder.MaskAll
	}
	log.WithFields(log.Fields{
		"pin":         r.cfg.Pin,
		"protocols":   r.registry.Names(),
		"pulse_queue": cap(pulses),
		"events":      events.String(),
	}).Info("receiver installed")
	return nil
}

// Events returns the decoded event queue, or nil if not installed. The
// channel is closed by Close.
func (r *Receiver) Events() <-chan decoder.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.installed {
		return nil
	}
	return r.dispatcher.Events()
}

// Stats returns the pipeline counters of the current installation.
func (r *Receiver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.installed {
		return Stats{}
	}
	return Stats{
		CaptureStats:  r.capture.Stats(),
		DispatchStats: r.dispatcher.Stats(),
	}
}

// Installed reports whether Install succeeded and Close was not called.
func (r *Receiver) Installed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installed
}

// Close detaches from the edge source, stops the dispatch task and resets
// every decoder. The receiver can be installed again afterwards.
func (r *Receiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.installed {
		return nil
	}

	err := r.source.Close()
	r.cancel()
	<-r.done
	r.registry.Reset(nil)

	r.installed = false
	r.source = nil
	log.Info("receiver uninstalled")

	if err != nil {
		return errors.Wrap(err, "close edge source")
	}
	return nil
}
