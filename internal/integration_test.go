package internal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/rf433-receiver/internal/decoder"
	"github.com/sweeney/rf433-receiver/internal/gpio"
	"github.com/sweeney/rf433-receiver/internal/mqtt"
	"github.com/sweeney/rf433-receiver/internal/protocol"
	"github.com/sweeney/rf433-receiver/internal/receiver"
	"github.com/sweeney/rf433-receiver/internal/status"
)

const us = time.Microsecond

// script builds the edge sequence a receiver module would produce.
type script struct {
	edges []gpio.Edge
	at    time.Duration
}

// tick appends a HIGH pulse followed by a LOW pulse.
func (s *script) tick(highUs, lowUs int) {
	s.edges = append(s.edges, gpio.Edge{Level: true, At: s.at})
	s.at += time.Duration(highUs) * us
	s.edges = append(s.edges, gpio.Edge{Level: false, At: s.at})
	s.at += time.Duration(lowUs) * us
}

// ev1527 appends frames on a 350µs clock plus the sync that confirms the
// last one.
func (s *script) ev1527(frames int, data uint64) {
	const clk = 350
	for f := 0; f < frames; f++ {
		s.tick(clk, 31*clk)
		for i := 23; i >= 0; i-- {
			if data&(1<<uint(i)) != 0 {
				s.tick(3*clk, clk)
			} else {
				s.tick(clk, 3*clk)
			}
		}
	}
	s.tick(clk, 31*clk)
}

// kingSerry appends 40-bit frames plus the confirming sync.
func (s *script) kingSerry(frames int, data uint64) {
	for f := 0; f < frames; f++ {
		s.tick(200, 600)
		for i := 39; i >= 0; i-- {
			if data&(1<<uint(i)) != 0 {
				s.tick(100, 300)
			} else {
				s.tick(100, 100)
			}
		}
	}
	s.tick(200, 600)
}

// end closes the last LOW pulse, then repeats the level as a lost edge.
func (s *script) end() {
	s.edges = append(s.edges, gpio.Edge{Level: true, At: s.at})
	s.edges = append(s.edges, gpio.Edge{Level: true, At: s.at + 10*time.Millisecond})
}

type harness struct {
	rx       *receiver.Receiver
	registry *decoder.Registry
	src      *gpio.FakeSource
	pub      *mqtt.FakePublisher
	tracker  *status.Tracker
}

func newHarness(t *testing.T, events decoder.ActionMask, edges []gpio.Edge) *harness {
	t.Helper()
	configs, err := protocol.Parse("ev1527,kingserry")
	if err != nil {
		t.Fatalf("parse protocols: %v", err)
	}
	h := &harness{
		registry: decoder.NewRegistry(configs...),
		src:      gpio.NewFakeSource(edges),
		pub:      mqtt.NewFakePublisher(),
		tracker:  status.NewTracker(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), status.Config{}),
	}
	cfg := receiver.DefaultConfig()
	cfg.PulseQueueSize = 4096
	cfg.Events = events
	h.rx = receiver.New(cfg, h.registry)
	if err := h.rx.Install(context.Background(), h.src); err != nil {
		t.Fatalf("install: %v", err)
	}
	t.Cleanup(func() { h.rx.Close() })
	return h
}

// publish forwards n events the way the daemon does.
func (h *harness) publish(t *testing.T, n int) {
	t.Helper()
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		select {
		case e := <-h.rx.Events():
			ev := mqtt.Event{Timestamp: ts, ProtocolName: h.registry.NameOf(e.ProtocolID), Event: e}
			if err := h.pub.Publish(ev); err != nil {
				t.Fatalf("publish: %v", err)
			}
			h.tracker.RecordEvent(ts, ev.ProtocolName, e)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d of %d events", i, n)
		}
	}
}

type want struct {
	protocol string
	action   decoder.Action
	code     uint64
}

func assertPublished(t *testing.T, pub *mqtt.FakePublisher, wants []want) {
	t.Helper()
	if len(pub.Events) != len(wants) {
		t.Fatalf("expected %d events, got %d", len(wants), len(pub.Events))
	}
	for i, w := range wants {
		got := pub.Events[i]
		if got.ProtocolName != w.protocol || got.Action != w.action || got.RawCode != w.code {
			t.Errorf("event %d: expected %s %s 0x%x, got %s %s", i, w.protocol, w.action, w.code, got.ProtocolName, got.Event)
		}
	}
}

// TestIntegrationFullFlow drives a button press from edges to MQTT payloads.
func TestIntegrationFullFlow(t *testing.T) {
	var s script
	s.ev1527(4, 0x8A1F2C)
	s.end()

	h := newHarness(t, decoder.MaskAll, s.edges)
	h.src.Play()
	h.publish(t, 5)

	assertPublished(t, h.pub, []want{
		{"ev1527", decoder.ActionStart, 0x8A1F2C},
		{"ev1527", decoder.ActionContinue, 0x8A1F2C},
		{"ev1527", decoder.ActionContinue, 0x8A1F2C},
		{"ev1527", decoder.ActionContinue, 0x8A1F2C},
		{"ev1527", decoder.ActionStop, 0x8A1F2C},
	})

	var parsed mqtt.Payload
	if err := json.Unmarshal(h.pub.Payloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.RF.Code != "0x8a1f2c" || parsed.RF.Protocol != "0x1527" || parsed.RF.Bits != 24 {
		t.Errorf("unexpected payload %+v", parsed.RF)
	}

	if c := h.tracker.Snapshot().Counts; c != (status.Counts{Start: 1, Continue: 3, Stop: 1}) {
		t.Errorf("unexpected counts %+v", c)
	}
}

// TestIntegrationProtocolsShareLine switches from one remote to another on
// the same input.
func TestIntegrationProtocolsShareLine(t *testing.T) {
	var s script
	s.ev1527(3, 0x00F00D)
	s.kingSerry(2, 0x12345678AB)
	s.end()

	h := newHarness(t, decoder.MaskAll, s.edges)
	h.src.Play()
	h.publish(t, 7)

	assertPublished(t, h.pub, []want{
		{"ev1527", decoder.ActionStart, 0x00F00D},
		{"ev1527", decoder.ActionContinue, 0x00F00D},
		{"ev1527", decoder.ActionContinue, 0x00F00D},
		{"ev1527", decoder.ActionStop, 0x00F00D},
		{"kingserry", decoder.ActionStart, 0x12345678AB},
		{"kingserry", decoder.ActionContinue, 0x12345678AB},
		{"kingserry", decoder.ActionStop, 0x12345678AB},
	})
}

// TestIntegrationCodeChange covers a second button pressed mid-burst.
func TestIntegrationCodeChange(t *testing.T) {
	var s script
	s.ev1527(2, 0x000001)
	// The trailing sync of the first burst starts the next frame.
	s.edges = s.edges[:len(s.edges)-2]
	s.at -= 32 * 350 * us
	s.ev1527(2, 0x000002)
	s.end()

	h := newHarness(t, decoder.MaskAll, s.edges)
	h.src.Play()
	h.publish(t, 5)

	assertPublished(t, h.pub, []want{
		{"ev1527", decoder.ActionStart, 1},
		{"ev1527", decoder.ActionContinue, 1},
		{"ev1527", decoder.ActionStop, 1},
		{"ev1527", decoder.ActionStart, 2},
		{"ev1527", decoder.ActionContinue, 2},
	})
}

// TestIntegrationStartStopOnly publishes press/release edges only.
func TestIntegrationStartStopOnly(t *testing.T) {
	var s script
	s.ev1527(5, 0xABCDEF)
	s.end()

	h := newHarness(t, decoder.MaskStart|decoder.MaskStop, s.edges)
	h.src.Play()
	h.publish(t, 2)

	assertPublished(t, h.pub, []want{
		{"ev1527", decoder.ActionStart, 0xABCDEF},
		{"ev1527", decoder.ActionStop, 0xABCDEF},
	})

	// Filtered events are counted once the dispatcher has seen the burst.
	deadline := time.Now().Add(5 * time.Second)
	for h.rx.Stats().EventsFiltered < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := h.rx.Stats().EventsFiltered; got != 4 {
		t.Errorf("expected 4 filtered continues, got %d", got)
	}
}

// TestIntegrationNoiseIsIgnored feeds random-width pulses that match no
// protocol.
func TestIntegrationNoiseIsIgnored(t *testing.T) {
	var s script
	widths := []int{37, 912, 4410, 15, 260, 77, 3100, 540, 5, 128, 2048, 64}
	for i := 0; i+1 < len(widths); i += 2 {
		s.tick(widths[i], widths[i+1])
	}
	s.end()

	h := newHarness(t, decoder.MaskAll, s.edges)
	h.src.Play()

	select {
	case e := <-h.rx.Events():
		t.Errorf("expected no events from noise, got %s", e)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestIntegrationStartupShutdownSnapshots checks the system events carry the
// status snapshot.
func TestIntegrationStartupShutdownSnapshots(t *testing.T) {
	var s script
	s.ev1527(2, 0x0000AA)
	s.end()

	h := newHarness(t, decoder.MaskAll, s.edges)
	h.tracker.SetReceiving(h.rx.Installed())

	startup := h.tracker.Snapshot()
	h.pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  startup.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(startup, "STARTUP", ""),
	})

	h.src.Play()
	h.publish(t, 3)

	stats := h.rx.Stats()
	h.tracker.SetPipeline(status.Pipeline{Edges: stats.Edges, Pulses: stats.Pulses, EventsSent: stats.EventsSent})
	shutdown := h.tracker.Snapshot()
	h.pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  shutdown.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(shutdown, "SHUTDOWN", "SIGTERM"),
	})

	if len(h.pub.SystemPayloads) != 2 {
		t.Fatalf("expected 2 system payloads, got %d", len(h.pub.SystemPayloads))
	}

	var first, last status.StatusJSON
	if err := json.Unmarshal(h.pub.SystemPayloads[0], &first); err != nil {
		t.Fatalf("invalid startup JSON: %v", err)
	}
	if err := json.Unmarshal(h.pub.SystemPayloads[1], &last); err != nil {
		t.Fatalf("invalid shutdown JSON: %v", err)
	}

	if first.Status.Event != "STARTUP" || !first.Status.Receiving || first.Status.LastEvent != nil {
		t.Errorf("unexpected startup status %+v", first.Status)
	}
	if last.Status.Event != "SHUTDOWN" || last.Status.Reason != "SIGTERM" {
		t.Errorf("unexpected shutdown status %+v", last.Status)
	}
	if last.Status.LastEvent == nil || last.Status.LastEvent.Action != "STOP" || last.Status.LastEvent.Code != "0x0000aa" {
		t.Errorf("unexpected last event %+v", last.Status.LastEvent)
	}
	if last.Status.Pipeline.Edges != uint64(len(s.edges)) {
		t.Errorf("expected %d edges, got %d", len(s.edges), last.Status.Pipeline.Edges)
	}
}
