package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Receiving     bool           `json:"receiving"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"event_counts"`
	LastEvent     *LastEventJSON `json:"last_event,omitempty"`
	Pipeline      PipelineJSON   `json:"pipeline"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Buffered  int    `json:"buffered"`
	Dropped   uint64 `json:"dropped"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Start    int `json:"start"`
	Continue int `json:"continue"`
	Stop     int `json:"stop"`
}

// LastEventJSON is the JSON representation of the latest decoded event.
type LastEventJSON struct {
	Timestamp    string `json:"timestamp"`
	Protocol     string `json:"protocol"`
	ProtocolName string `json:"protocol_name,omitempty"`
	Action       string `json:"action"`
	Code         string `json:"code"`
	Bits         int    `json:"bits"`
}

// PipelineJSON is the JSON representation of the pipeline counters.
type PipelineJSON struct {
	Edges          uint64 `json:"edges"`
	Pulses         uint64 `json:"pulses"`
	PulseDrops     uint64 `json:"pulse_drops"`
	PulseOverflows uint64 `json:"pulse_overflows"`
	EventsSent     uint64 `json:"events_sent"`
	EventsFiltered uint64 `json:"events_filtered"`
	EventDrops     uint64 `json:"event_drops"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Pin            int      `json:"pin"`
	Backend        string   `json:"gpio_backend"`
	Protocols      []string `json:"protocols"`
	Events         string   `json:"events"`
	PulseQueue     int      `json:"pulse_queue"`
	EventQueue     int      `json:"event_queue"`
	EventTimeoutMs int64    `json:"event_timeout_ms"`
	HeartbeatMs    int64    `json:"heartbeat_ms"`
	Broker         string   `json:"broker"`
	HTTPPort       string   `json:"http_port"`
	WSBroker       string   `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	protocols := snap.Config.Protocols
	if protocols == nil {
		protocols = []string{}
	}

	inner := StatusInner{
		Receiving:     snap.Receiving,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Buffered:  snap.MQTTBuffered,
			Dropped:   snap.MQTTDropped,
		},
		Counts: CountsJSON{
			Start:    snap.Counts.Start,
			Continue: snap.Counts.Continue,
			Stop:     snap.Counts.Stop,
		},
		Pipeline: PipelineJSON(snap.Pipeline),
		Config: ConfigJSON{
			Pin:            snap.Config.Pin,
			Backend:        snap.Config.Backend,
			Protocols:      protocols,
			Events:         snap.Config.Events,
			PulseQueue:     snap.Config.PulseQueue,
			EventQueue:     snap.Config.EventQueue,
			EventTimeoutMs: snap.Config.EventTimeoutMs,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			Broker:         snap.Config.Broker,
			HTTPPort:       snap.Config.HTTPPort,
			WSBroker:       snap.Config.WSBroker,
		},
	}

	if last := snap.Last; last != nil {
		inner.LastEvent = &LastEventJSON{
			Timestamp:    last.Timestamp.UTC().Format(time.RFC3339),
			Protocol:     fmt.Sprintf("0x%04x", last.ProtocolID),
			ProtocolName: last.ProtocolName,
			Action:       last.Action.String(),
			Code:         last.Code().String(),
			Bits:         last.Bits,
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
