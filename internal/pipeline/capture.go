// Package pipeline moves edge timings from the GPIO event context to the
// protocol decoders and decoded events out to consumers, through two
// bounded queues that never block the capture side.
package pipeline

import (
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/rf433-receiver/internal/decoder"
)

// Queue defaults.
const (
	DefaultPulseQueueSize = 120
	DefaultEventQueueSize = 5
	DefaultEventTimeout   = 500 * time.Millisecond
)

// NewPulseQueue returns a bounded pulse queue. A non-positive capacity
// selects DefaultPulseQueueSize.
func NewPulseQueue(capacity int) chan decoder.Pulse {
	if capacity <= 0 {
		capacity = DefaultPulseQueueSize
	}
	return make(chan decoder.Pulse, capacity)
}

// Capture converts edges into pulses. OnEdge runs on the edge source's
// event goroutine and must stay short: it never blocks and never allocates.
// It is not safe for concurrent use; there is one Capture per input line.
type Capture struct {
	out chan<- decoder.Pulse

	prevLevel bool
	prevTime  time.Duration
	queueFull bool

	edges     atomic.Uint64
	drops     atomic.Uint64
	overflows atomic.Uint64
}

// NewCapture creates a producer writing to out.
func NewCapture(out chan<- decoder.Pulse) *Capture {
	return &Capture{out: out}
}

// OnEdge records an edge. level is the line level after the edge and ts a
// monotonic timestamp. The pulse that just ended (previous level, time since
// the previous edge) is queued. A missed edge (level unchanged) or an earlier
// dropped pulse queues the reset sentinel instead.
func (c *Capture) OnEdge(level bool, ts time.Duration) {
	c.edges.Add(1)

	p := decoder.ResetPulse
	if !c.queueFull && level != c.prevLevel {
		p = decoder.Pulse{Level: c.prevLevel, Duration: ts - c.prevTime}
	}
	c.prevLevel = level
	c.prevTime = ts

	select {
	case c.out <- p:
		c.queueFull = false
	default:
		c.drops.Add(1)
		if !c.queueFull {
			c.overflows.Add(1)
			log.WithField("capacity", cap(c.out)).Error("pulse queue is full")
		}
		c.queueFull = true
	}
}

// CaptureStats are counters since the capture was created.
type CaptureStats struct {
	Edges      uint64 // edges seen
	PulseDrops uint64 // pulses dropped on a full queue
	Overflows  uint64 // distinct queue-full episodes
}

// Stats returns the counters. Safe to call from any goroutine.
func (c *Capture) Stats() CaptureStats {
	return CaptureStats{
		Edges:      c.edges.Load(),
		PulseDrops: c.drops.Load(),
		Overflows:  c.overflows.Load(),
	}
}
