package decoder

// phase tracks which half of a tick the parser is waiting for.
type phase uint8

const (
	awaitingFirstPulse phase = iota
	awaitingSecondPulse
)

// captureState replaces the "bits == -1" sentinel of the capture.
type captureState uint8

const (
	searching    captureState = iota // waiting for a sync tick
	accumulating                     // sync seen, collecting bits
)

// step tells a decoder what to do after a pulse was paired.
type step uint8

const (
	stepWait  step = iota // half a tick received
	stepTick              // both halves received, evaluate the tick
	stepReset             // discontinuity or unexpected level
)

// runtime is the state machine shared by every decoder variant: it pairs
// pulses into ticks and applies the start/continue/stop registration rules.
type runtime struct {
	id          uint16
	name        string
	codeBits    int
	firstLevel  bool
	secondLevel bool

	phase    phase
	firstUs  int
	secondUs int

	state      captureState
	captured   Code
	registered Code
	codes      int // codes registered since the last reset
}

func (r *runtime) init(id uint16, name string, codeBits int, inverted bool) {
	r.id = id
	r.name = name
	r.codeBits = codeBits
	// Inverted protocols start a tick with a LOW pulse.
	r.firstLevel = !inverted
	r.secondLevel = inverted
	r.reset(nil)
}

// next pairs p with the previous pulse.
func (r *runtime) next(p Pulse) step {
	if p.IsReset() {
		return stepReset
	}
	switch r.phase {
	case awaitingFirstPulse:
		if p.Level != r.firstLevel {
			return stepReset
		}
		r.firstUs = int(p.Duration.Microseconds())
		r.phase = awaitingSecondPulse
		return stepWait
	default:
		if p.Level != r.secondLevel {
			return stepReset
		}
		r.secondUs = int(p.Duration.Microseconds())
		r.phase = awaitingFirstPulse
		return stepTick
	}
}

// reset returns to searching for sync. If a burst was in progress a final
// Stop is emitted for the registered code.
func (r *runtime) reset(emit EmitFunc) {
	if r.codes > 0 {
		r.emit(emit, ActionStop)
	}
	r.phase = awaitingFirstPulse
	r.firstUs = 0
	r.secondUs = 0
	r.state = searching
	r.captured = Code{}
	r.codes = 0
}

// startCode begins accumulating bits of a new code.
func (r *runtime) startCode() {
	r.state = accumulating
	r.captured = Code{}
}

// appendBit shifts a bit into the capture. It reports false when the
// capture grew past the configured code length.
func (r *runtime) appendBit(one bool) bool {
	r.captured.Data <<= 1
	if one {
		r.captured.Data |= 1
	}
	r.captured.Bits++
	return r.captured.Bits <= r.codeBits
}

// register confirms the captured code. Called when the sync of the next code
// arrives. Returns false if the capture has the wrong length.
func (r *runtime) register(emit EmitFunc) bool {
	if r.captured.Bits != r.codeBits {
		return false
	}
	switch {
	case r.codes == 0:
		r.registered = r.captured
		r.emit(emit, ActionStart)
	case r.captured.Data != r.registered.Data:
		r.emit(emit, ActionStop)
		r.registered = r.captured
		r.emit(emit, ActionStart)
	default:
		r.emit(emit, ActionContinue)
	}
	r.codes++
	return true
}

// nextSync handles a sync tick that terminates a capture: the code is
// registered and accumulation restarts. A capture of the wrong length resets
// the burst first.
func (r *runtime) nextSync(emit EmitFunc) {
	if !r.register(emit) {
		r.reset(emit)
	}
	r.startCode()
}

func (r *runtime) emit(emit EmitFunc, a Action) {
	if emit == nil {
		return
	}
	emit(Event{
		ProtocolID: r.id,
		Action:     a,
		RawCode:    r.registered.Data,
		Bits:       r.registered.Bits,
	})
}

// tick returns the durations of the last paired pulses. ok is false if either
// half rounded down to zero microseconds.
func (r *runtime) tick() (first, second int, ok bool) {
	return r.firstUs, r.secondUs, r.firstUs > 0 && r.secondUs > 0
}

func (r *runtime) Protocol() uint16 { return r.id }

func (r *runtime) Name() string { return r.name }
