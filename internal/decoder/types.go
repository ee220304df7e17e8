// Package decoder turns a stream of level pulses into start/continue/stop
// code events. It has NO hardware or network dependencies (no GPIO, MQTT
// or clocks): every input is a Pulse and every output goes through an
// EmitFunc.
//
// Decoders are not safe for concurrent use. Each instance is owned by a
// single dispatch goroutine.
package decoder

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Pulse is a signal level held for a measured duration.
// A zero Duration means the stream is discontinuous (missed edge, dropped
// pulse) and every decoder must reset.
type Pulse struct {
	Level    bool
	Duration time.Duration
}

// ResetPulse is the discontinuity sentinel.
var ResetPulse = Pulse{}

// IsReset reports whether p is the discontinuity sentinel.
func (p Pulse) IsReset() bool {
	return p.Duration == 0
}

// Code is an accumulated bit pattern.
type Code struct {
	Data uint64
	Bits int
}

// String renders c in hex, zero-padded to its bit length.
func (c Code) String() string {
	digits := (c.Bits + 3) / 4
	if digits < 1 {
		digits = 1
	}
	return fmt.Sprintf("0x%0*x", digits, c.Data)
}

// Action is the kind of state transition an Event reports.
type Action uint8

const (
	ActionStart    Action = 0
	ActionStop     Action = 1
	ActionContinue Action = 2
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "START"
	case ActionStop:
		return "STOP"
	case ActionContinue:
		return "CONTINUE"
	}
	return fmt.Sprintf("ACTION(%d)", uint8(a))
}

// ActionMask selects which actions are forwarded to consumers.
type ActionMask uint8

const (
	MaskStart    ActionMask = 1 << ActionStart
	MaskStop     ActionMask = 1 << ActionStop
	MaskContinue ActionMask = 1 << ActionContinue
	MaskAll                 = MaskStart | MaskStop | MaskContinue
)

// Has reports whether a is enabled in m.
func (m ActionMask) Has(a Action) bool {
	return m&(1<<a) != 0
}

func (m ActionMask) String() string {
	var parts []string
	for _, a := range []Action{ActionStart, ActionContinue, ActionStop} {
		if m.Has(a) {
			parts = append(parts, strings.ToLower(a.String()))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// ParseActionMask parses a comma separated list such as "start,stop".
// "all" enables every action.
func ParseActionMask(s string) (ActionMask, error) {
	var m ActionMask
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "all":
			m |= MaskAll
		case "start":
			m |= MaskStart
		case "continue":
			m |= MaskContinue
		case "stop":
			m |= MaskStop
		default:
			return 0, errors.Errorf("unknown event type %q", part)
		}
	}
	if m == 0 {
		return 0, errors.New("no event types enabled")
	}
	return m, nil
}

// Event reports a transition of the code a protocol decoder is tracking.
type Event struct {
	ProtocolID uint16
	Action     Action
	RawCode    uint64
	Bits       int
}

// Code returns the event's code.
func (e Event) Code() Code {
	return Code{Data: e.RawCode, Bits: e.Bits}
}

func (e Event) String() string {
	return fmt.Sprintf("%s proto=0x%04x code=0x%x bits=%d", e.Action, e.ProtocolID, e.RawCode, e.Bits)
}

// EmitFunc receives events produced while handling a pulse.
// A nil EmitFunc discards them.
type EmitFunc func(Event)

// Decoder is a single protocol decoder fed with every pulse of the stream.
type Decoder interface {
	// Input consumes the next pulse. Zero, one or two events may be emitted
	// (a code change mid-burst emits Stop then Start).
	Input(p Pulse, emit EmitFunc)

	// Reset drops any capture in progress, emitting Stop if a burst was
	// being tracked. Calling it repeatedly is harmless.
	Reset(emit EmitFunc)

	// Protocol returns the protocol identifier carried by emitted events.
	Protocol() uint16

	// Name returns a human readable protocol name.
	Name() string
}

// MaxCodeBits is the widest code a decoder can accumulate.
const MaxCodeBits = 64
