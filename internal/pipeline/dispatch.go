package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/rf433-receiver/internal/decoder"
)

// DispatchConfig configures the dispatch task.
type DispatchConfig struct {
	EventQueueSize int                // 0 = DefaultEventQueueSize
	EventTimeout   time.Duration      // 0 = DefaultEventTimeout
	Events         decoder.ActionMask // 0 = decoder.MaskAll
}

// Dispatcher drains the pulse queue, feeds every decoder and forwards the
// enabled events to a bounded event queue.
type Dispatcher struct {
	in       <-chan decoder.Pulse
	out      chan decoder.Event
	registry *decoder.Registry
	mask     decoder.ActionMask
	timeout  time.Duration

	// Only touched by the Run goroutine.
	eventQueueFull bool

	pulses   atomic.Uint64
	sent     atomic.Uint64
	filtered atomic.Uint64
	drops    atomic.Uint64
}

// NewDispatcher creates a dispatcher reading pulses from in.
func NewDispatcher(in <-chan decoder.Pulse, registry *decoder.Registry, cfg DispatchConfig) *Dispatcher {
	if cfg.EventQueueSize <= 0 {
		cfg.EventQueueSize = DefaultEventQueueSize
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = DefaultEventTimeout
	}
	if cfg.Events == 0 {
		cfg.Events = decoder.MaskAll
	}
	return &Dispatcher{
		in:       in,
		out:      make(chan decoder.Event, cfg.EventQueueSize),
		registry: registry,
		mask:     cfg.Events,
		timeout:  cfg.EventTimeout,
	}
}

// Events returns the event queue. It is closed when Run returns.
func (d *Dispatcher) Events() <-chan decoder.Event {
	return d.out
}

// Run processes pulses until ctx is cancelled or the pulse queue is closed.
// It must be called once.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.out)
	log.WithField("protocols", d.registry.Names()).Info("dispatch task started")

	emit := func(e decoder.Event) { d.forward(ctx, e) }
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-d.in:
			if !ok {
				return
			}
			d.pulses.Add(1)
			d.registry.Input(p, emit)
		}
	}
}

// forward applies the action mask and queues e, waiting at most the
// configured timeout for space.
func (d *Dispatcher) forward(ctx context.Context, e decoder.Event) {
	if !d.mask.Has(e.Action) {
		d.filtered.Add(1)
		return
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("protocol", d.registry.NameOf(e.ProtocolID)).Debugf("event: %s", e)
	}

	select {
	case d.out <- e:
		d.sent.Add(1)
		d.eventQueueFull = false
		return
	default:
	}

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case d.out <- e:
		d.sent.Add(1)
		d.eventQueueFull = false
	case <-timer.C:
		d.drop()
	case <-ctx.Done():
		d.drop()
	}
}

func (d *Dispatcher) drop() {
	d.drops.Add(1)
	if !d.eventQueueFull {
		log.WithField("capacity", cap(d.out)).Warn("event queue is full")
	}
	d.eventQueueFull = true
}

// DispatchStats are counters since the dispatcher was created.
type DispatchStats struct {
	Pulses         uint64 // pulses fed to the decoders
	EventsSent     uint64 // events queued
	EventsFiltered uint64 // events suppressed by the action mask
	EventDrops     uint64 // events dropped after the wait budget
}

// Stats returns the counters. Safe to call from any goroutine.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Pulses:         d.pulses.Load(),
		EventsSent:     d.sent.Load(),
		EventsFiltered: d.filtered.Load(),
		EventDrops:     d.drops.Load(),
	}
}
