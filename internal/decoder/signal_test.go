package decoder

import (
	"testing"
	"time"
)

// recorder collects emitted events.
type recorder struct {
	events []Event
}

func (r *recorder) emit(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) actions() []Action {
	out := make([]Action, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

func pulse(level bool, us int) Pulse {
	return Pulse{Level: level, Duration: time.Duration(us) * time.Microsecond}
}

// tickPulses returns a tick in transmission order for the given polarity.
func tickPulses(inverted bool, first, second int) []Pulse {
	return []Pulse{pulse(!inverted, first), pulse(inverted, second)}
}

// ev1527Sync is a 1:31 sync tick with base clock t µs.
func ev1527Sync(t int) []Pulse {
	return tickPulses(false, t, 31*t)
}

// ev1527Code encodes data MSB first as {3,1} / {1,3} ticks.
func ev1527Code(t int, data uint64, bits int) []Pulse {
	var out []Pulse
	for i := bits - 1; i >= 0; i-- {
		if data&(1<<uint(i)) != 0 {
			out = append(out, tickPulses(false, 3*t, t)...)
		} else {
			out = append(out, tickPulses(false, t, 3*t)...)
		}
	}
	return out
}

// ev1527Frame is a sync followed by a full code.
func ev1527Frame(t int, data uint64) []Pulse {
	return append(ev1527Sync(t), ev1527Code(t, data, 24)...)
}

// kingSerrySync, kingSerryCode build ticks for the fixed test protocol.
func kingSerrySync() []Pulse {
	return tickPulses(false, 200, 600)
}

func kingSerryCode(data uint64, bits int) []Pulse {
	var out []Pulse
	for i := bits - 1; i >= 0; i-- {
		if data&(1<<uint(i)) != 0 {
			out = append(out, tickPulses(false, 100, 300)...)
		} else {
			out = append(out, tickPulses(false, 100, 100)...)
		}
	}
	return out
}

func feed(d Decoder, pulses []Pulse, emit EmitFunc) {
	for _, p := range pulses {
		d.Input(p, emit)
	}
}

func concat(parts ...[]Pulse) []Pulse {
	var out []Pulse
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var testAdaptiveConfig = AdaptiveConfig{
	ID:        0x1527,
	Name:      "ev1527",
	SyncClock: 32,
	BitClock:  4,
	CodeBits:  24,
}

var testFixedConfig = FixedConfig{
	ID:        0x0000,
	Name:      "kingserry",
	SyncStart: Window{Min: 185, Max: 215},
	SyncWidth: Window{Min: 780, Max: 810},
	Bit0:      Window{Min: 180, Max: 230},
	Bit1:      Window{Min: 370, Max: 420},
	CodeBits:  40,
}

func newTestAdaptive(t *testing.T) *Adaptive {
	t.Helper()
	a, err := NewAdaptive(testAdaptiveConfig)
	if err != nil {
		t.Fatalf("NewAdaptive: %v", err)
	}
	return a
}

func newTestFixed(t *testing.T) *Fixed {
	t.Helper()
	f, err := NewFixed(testFixedConfig)
	if err != nil {
		t.Fatalf("NewFixed: %v", err)
	}
	return f
}

func assertActions(t *testing.T, got []Action, want ...Action) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected actions %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected actions %v, got %v", want, got)
		}
	}
}
