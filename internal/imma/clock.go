package imma

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze seal timestamps.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for provenance timestamps. Pass nil
// to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
