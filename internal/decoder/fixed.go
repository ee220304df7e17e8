package decoder

import "github.com/pkg/errors"

// FixedConfig describes a protocol with known timing. Bits are told apart
// by the total tick width rather than by the ratio of its pulses.
type FixedConfig struct {
	ID        uint16
	Name      string
	SyncStart Window // first pulse of the sync tick
	SyncWidth Window // whole sync tick
	Bit0      Window // whole tick of a "0"
	Bit1      Window // whole tick of a "1"
	CodeBits  int
	Inverted  bool
}

func (c FixedConfig) validate() error {
	for name, w := range map[string]Window{
		"sync start": c.SyncStart,
		"sync width": c.SyncWidth,
		"bit 0":      c.Bit0,
		"bit 1":      c.Bit1,
	} {
		if w.Empty() || w.Min <= 0 {
			return errors.Errorf("protocol %s: invalid %s window %s", c.Name, name, w)
		}
	}
	if c.Bit0.Contains(c.Bit1.Min) || c.Bit0.Contains(c.Bit1.Max) ||
		c.Bit1.Contains(c.Bit0.Min) || c.Bit1.Contains(c.Bit0.Max) {
		return errors.Errorf("protocol %s: bit windows %s and %s overlap", c.Name, c.Bit0, c.Bit1)
	}
	if c.CodeBits <= 0 || c.CodeBits > MaxCodeBits {
		return errors.Errorf("protocol %s: code length %d out of range 1..%d", c.Name, c.CodeBits, MaxCodeBits)
	}
	return nil
}

// Fixed decodes a protocol whose windows are set at construction.
type Fixed struct {
	runtime
	cfg FixedConfig
}

// NewFixed creates a fixed-timing decoder in the searching state.
func NewFixed(cfg FixedConfig) (*Fixed, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	f := &Fixed{cfg: cfg}
	f.init(cfg.ID, cfg.Name, cfg.CodeBits, cfg.Inverted)
	return f, nil
}

// Input implements Decoder.
func (f *Fixed) Input(p Pulse, emit EmitFunc) {
	switch f.next(p) {
	case stepReset:
		f.reset(emit)
	case stepTick:
		f.parseTick(emit)
	}
}

// Reset implements Decoder.
func (f *Fixed) Reset(emit EmitFunc) {
	f.reset(emit)
}

func (f *Fixed) isSync(first, width int) bool {
	return f.cfg.SyncStart.Contains(first) && f.cfg.SyncWidth.Contains(width)
}

func (f *Fixed) parseTick(emit EmitFunc) {
	first, second, ok := f.tick()
	if !ok {
		f.reset(emit)
		return
	}
	width := first + second

	if f.state == searching {
		if f.isSync(first, width) {
			f.startCode()
		}
		return
	}

	switch {
	case f.cfg.Bit0.Contains(width):
		if !f.appendBit(false) {
			f.reset(emit)
		}
	case f.cfg.Bit1.Contains(width):
		if !f.appendBit(true) {
			f.reset(emit)
		}
	case f.isSync(first, width):
		f.nextSync(emit)
	default:
		f.reset(emit)
	}
}
