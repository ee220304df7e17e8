package decoder

import "fmt"

// Window is an inclusive [Min, Max] tolerance band in microseconds (or in
// plain ratio units for the sync ratio).
type Window struct {
	Min int
	Max int
}

// MakeWindow returns base ± percent% of base, rounded half up.
func MakeWindow(base, percent int) Window {
	diff := DivRound(base*percent, 100)
	return Window{Min: base - diff, Max: base + diff}
}

// Contains reports whether v lies within the window, bounds included.
func (w Window) Contains(v int) bool {
	return v >= w.Min && v <= w.Max
}

// Empty reports whether no value can match.
func (w Window) Empty() bool {
	return w.Max < w.Min
}

func (w Window) String() string {
	return fmt.Sprintf("[%d..%d]", w.Min, w.Max)
}

// DivRound divides a by b rounding half up in 1/1024 fixed point.
// b must be positive.
func DivRound(a, b int) int {
	return (1024*a/b + 512) / 1024
}
