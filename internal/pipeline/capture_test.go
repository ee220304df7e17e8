package pipeline

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sweeney/rf433-receiver/internal/decoder"
)

const us = time.Microsecond

func countMessages(hook *test.Hook, msg string) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Message == msg {
			n++
		}
	}
	return n
}

func TestCaptureConvertsEdgesToPulses(t *testing.T) {
	q := NewPulseQueue(10)
	c := NewCapture(q)

	c.OnEdge(true, 1000*us)  // LOW held since 0
	c.OnEdge(false, 1100*us) // HIGH for 100µs
	c.OnEdge(true, 4200*us)  // LOW for 3100µs

	want := []decoder.Pulse{
		{Level: false, Duration: 1000 * us},
		{Level: true, Duration: 100 * us},
		{Level: false, Duration: 3100 * us},
	}
	for i, w := range want {
		got := <-q
		if got != w {
			t.Errorf("pulse %d: expected %+v, got %+v", i, w, got)
		}
	}
	if s := c.Stats(); s.Edges != 3 || s.PulseDrops != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestCaptureMissedEdgeQueuesReset(t *testing.T) {
	q := NewPulseQueue(10)
	c := NewCapture(q)

	c.OnEdge(true, 100*us)
	c.OnEdge(true, 200*us) // same level: an edge was lost
	c.OnEdge(false, 300*us)

	<-q
	if p := <-q; !p.IsReset() {
		t.Errorf("expected reset pulse for missed edge, got %+v", p)
	}
	// Timing resumes from the last edge.
	if p := <-q; p != (decoder.Pulse{Level: true, Duration: 100 * us}) {
		t.Errorf("expected HIGH 100µs after resync, got %+v", p)
	}
}

func TestCaptureBackpressure(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	q := NewPulseQueue(2)
	c := NewCapture(q)

	level := false
	edge := func(at int) {
		level = !level
		c.OnEdge(level, time.Duration(at)*us)
	}

	// Two fit, three are dropped without blocking.
	done := make(chan struct{})
	go func() {
		for i := 1; i <= 5; i++ {
			edge(i * 100)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnEdge blocked on a full queue")
	}

	s := c.Stats()
	if s.PulseDrops != 3 {
		t.Errorf("expected 3 drops, got %d", s.PulseDrops)
	}
	if s.Overflows != 1 {
		t.Errorf("expected 1 overflow episode, got %d", s.Overflows)
	}
	if n := countMessages(hook, "pulse queue is full"); n != 1 {
		t.Errorf("expected the overflow logged once, got %d", n)
	}

	// Drain; the first pulse after an overflow is a reset.
	<-q
	<-q
	edge(600)
	if p := <-q; !p.IsReset() {
		t.Errorf("expected reset pulse after overflow, got %+v", p)
	}
	edge(700)
	if p := <-q; p.IsReset() || p.Duration != 100*us {
		t.Errorf("expected a real 100µs pulse, got %+v", p)
	}

	// A second episode is reported again.
	edge(800)
	edge(900)
	edge(1000)
	if s := c.Stats(); s.Overflows != 2 {
		t.Errorf("expected 2 overflow episodes, got %d", s.Overflows)
	}
	if n := countMessages(hook, "pulse queue is full"); n != 2 {
		t.Errorf("expected 2 overflow logs, got %d", n)
	}
}

func TestNewPulseQueueDefault(t *testing.T) {
	if c := cap(NewPulseQueue(0)); c != DefaultPulseQueueSize {
		t.Errorf("expected default capacity %d, got %d", DefaultPulseQueueSize, c)
	}
	if c := cap(NewPulseQueue(256)); c != 256 {
		t.Errorf("expected capacity 256, got %d", c)
	}
}
