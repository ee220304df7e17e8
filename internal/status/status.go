// Package status provides a thread-safe status tracker for the rf433-receiver
// daemon. It is read by the HTTP handlers and by the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/rf433-receiver/internal/decoder"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Pin            int
	Backend        string
	Protocols      []string
	Events         string
	PulseQueue     int
	EventQueue     int
	EventTimeoutMs int64
	HeartbeatMs    int64
	Broker         string
	HTTPPort       string
	WSBroker       string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Counts holds the number of events forwarded per action.
type Counts struct {
	Start    int
	Continue int
	Stop     int
}

// LastEvent is the most recent decoded event.
type LastEvent struct {
	Timestamp    time.Time
	ProtocolName string
	decoder.Event
}

// Pipeline mirrors the receiver's counters.
type Pipeline struct {
	Edges          uint64
	Pulses         uint64
	PulseDrops     uint64
	PulseOverflows uint64
	EventsSent     uint64
	EventsFiltered uint64
	EventDrops     uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Receiving     bool
	Counts        Counts
	Last          *LastEvent
	Pipeline      Pipeline
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTBuffered  int
	MQTTDropped   uint64
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// RecordEvent counts a decoded event and remembers it as the latest.
func (t *Tracker) RecordEvent(ts time.Time, protocolName string, e decoder.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Action {
	case decoder.ActionStart:
		t.snap.Counts.Start++
	case decoder.ActionContinue:
		t.snap.Counts.Continue++
	case decoder.ActionStop:
		t.snap.Counts.Stop++
	}
	t.snap.Last = &LastEvent{Timestamp: ts, ProtocolName: protocolName, Event: e}
}

// SetReceiving records whether the receiver is installed.
func (t *Tracker) SetReceiving(receiving bool) {
	t.mu.Lock()
	t.snap.Receiving = receiving
	t.mu.Unlock()
}

// SetPipeline replaces the pipeline counters.
func (t *Tracker) SetPipeline(p Pipeline) {
	t.mu.Lock()
	t.snap.Pipeline = p
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTBacklog records the offline queue depth and drop total.
func (t *Tracker) SetMQTTBacklog(buffered int, dropped uint64) {
	t.mu.Lock()
	t.snap.MQTTBuffered = buffered
	t.snap.MQTTDropped = dropped
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	s.Config.Protocols = append([]string(nil), s.Config.Protocols...)
	s.Now = time.Now()
	return s
}
