package migration

import "sync/atomic"

// Flag is the cooperative cancellation signal polled at batch boundaries.
// The zero value is ready to use and safe for concurrent Set calls.
type Flag struct {
	set atomic.Bool
}

// Set requests cancellation.
func (f *Flag) Set() {
	if f != nil {
		f.set.Store(true)
	}
}

// Cancelled reports whether Set was called.
func (f *Flag) Cancelled() bool {
	return f != nil && f.set.Load()
}
