// Package mqtt publishes decoded remote-control events and receiver
// lifecycle events, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/rf433-receiver/internal/decoder"
)

// Topic is the MQTT topic for decoded events.
const Topic = "rf433/receiver/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "rf433/receiver/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a decoded event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Backlog is implemented by publishers that queue messages while offline.
type Backlog interface {
	Buffered() int
	Dropped() uint64
}

// Event is a decoded event stamped with its receive time.
type Event struct {
	Timestamp    time.Time
	ProtocolName string
	decoder.Event
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	RF RFPayload `json:"rf"`
}

// RFPayload contains the decoded event details.
type RFPayload struct {
	Timestamp    string `json:"timestamp"`
	Protocol     string `json:"protocol"`
	ProtocolName string `json:"protocol_name,omitempty"`
	Action       string `json:"action"`
	Code         string `json:"code"`
	RawCode      uint64 `json:"raw_code"`
	Bits         int    `json:"bits"`
}

// FormatProtocol renders a protocol ID the way it is published.
func FormatProtocol(id uint16) string {
	return fmt.Sprintf("0x%04x", id)
}

// FormatCode renders a code as hex, zero-padded to its bit length.
func FormatCode(code uint64, bits int) string {
	return decoder.Code{Data: code, Bits: bits}.String()
}

// FormatPayload creates the JSON payload for a decoded event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		RF: RFPayload{
			Timestamp:    event.Timestamp.UTC().Format(time.RFC3339),
			Protocol:     FormatProtocol(event.ProtocolID),
			ProtocolName: event.ProtocolName,
			Action:       event.Action.String(),
			Code:         FormatCode(event.RawCode, event.Bits),
			RawCode:      event.RawCode,
			Bits:         event.Bits,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
