package decoder

import "github.com/pkg/errors"

// Tolerances used by the adaptive decoder, in percent.
const (
	syncRatioTolerance = 13
	syncTolerance      = 1
	bitTolerance       = 4
)

// AdaptiveConfig describes a protocol whose absolute timing is learned from
// the sync tick.
//
//	sync (32 clocks):  +---+                           +
//	                   | 1 |            31             |
//	                   +   +---------------------------+
//	bit "1" (4 clocks): {3, 1}    bit "0": {1, 3}
type AdaptiveConfig struct {
	ID        uint16
	Name      string
	SyncClock int  // sync tick width in clock ticks
	BitClock  int  // bit tick width in clock ticks
	CodeBits  int  // code length in bits
	Inverted  bool // tick starts LOW; the sync's long pulse comes first
}

func (c AdaptiveConfig) validate() error {
	if c.SyncClock <= 0 || c.BitClock <= 0 {
		return errors.Errorf("protocol %s: clock counts must be positive (sync=%d bit=%d)", c.Name, c.SyncClock, c.BitClock)
	}
	if c.BitClock >= c.SyncClock {
		return errors.Errorf("protocol %s: bit clock %d not shorter than sync clock %d", c.Name, c.BitClock, c.SyncClock)
	}
	if c.CodeBits <= 0 || c.CodeBits > MaxCodeBits {
		return errors.Errorf("protocol %s: code length %d out of range 1..%d", c.Name, c.CodeBits, MaxCodeBits)
	}
	return nil
}

// Adaptive decodes a ratio-based pulse protocol, calibrating its bit and
// sync windows from every sync tick that does not match the cached one.
type Adaptive struct {
	runtime
	cfg AdaptiveConfig

	syncRatio Window // long/short pulse ratio of a sync tick
	syncUs    Window // calibrated sync tick width
	bitUs     Window // calibrated bit tick width
}

// NewAdaptive creates an adaptive decoder in the searching state.
func NewAdaptive(cfg AdaptiveConfig) (*Adaptive, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	a := &Adaptive{
		cfg:       cfg,
		syncRatio: MakeWindow(cfg.SyncClock, syncRatioTolerance),
		// Nothing matches until the first sync calibrates the windows.
		syncUs: Window{Min: 1, Max: 0},
		bitUs:  Window{Min: 1, Max: 0},
	}
	a.init(cfg.ID, cfg.Name, cfg.CodeBits, cfg.Inverted)
	return a, nil
}

// Input implements Decoder.
func (a *Adaptive) Input(p Pulse, emit EmitFunc) {
	switch a.next(p) {
	case stepReset:
		a.reset(emit)
	case stepTick:
		a.parseTick(emit)
	}
}

// Reset implements Decoder. Calibration survives a reset.
func (a *Adaptive) Reset(emit EmitFunc) {
	a.reset(emit)
}

// Windows returns the current calibration.
func (a *Adaptive) Windows() (sync, bit Window) {
	return a.syncUs, a.bitUs
}

// isSyncRatio compares the long/short ratio of a tick with the configured
// sync clock count.
func (a *Adaptive) isSyncRatio(first, second int) bool {
	if a.cfg.Inverted {
		return a.syncRatio.Contains(DivRound(first, second))
	}
	return a.syncRatio.Contains(DivRound(second, first))
}

func (a *Adaptive) calibrate(syncWidth int) {
	if a.syncUs.Contains(syncWidth) {
		return
	}
	baseTick := DivRound(syncWidth, a.cfg.SyncClock)
	a.bitUs = MakeWindow(baseTick*a.cfg.BitClock, bitTolerance)
	a.syncUs = MakeWindow(syncWidth, syncTolerance)
}

func (a *Adaptive) parseTick(emit EmitFunc) {
	first, second, ok := a.tick()
	if !ok {
		a.reset(emit)
		return
	}
	width := first + second

	if a.state == searching {
		if !a.isSyncRatio(first, second) {
			return
		}
		a.calibrate(width)
		a.startCode()
		return
	}

	switch {
	case a.bitUs.Contains(width):
		// The longer pulse decides the bit; polarity is not taken into account.
		if !a.appendBit(first > second) {
			a.reset(emit)
		}
	case a.syncUs.Contains(width) && a.isSyncRatio(first, second):
		// Codes are confirmed only by the sync of the following code, so the
		// last code of a burst is dropped. Some remotes corrupt its tail.
		a.nextSync(emit)
	default:
		a.reset(emit)
	}
}
