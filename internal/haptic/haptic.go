// Package haptic provides the short feedback pulses the card emits on
// slider and button interaction.
package haptic

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrUnavailable is returned by feedback devices that cannot pulse
var ErrUnavailable = errors.New("haptic feedback unavailable")

// Feedback emits a pulse of roughly the given length
type Feedback interface {
	Vibrate(d time.Duration) error
}

// Nop is a Feedback that does nothing and reports ErrUnavailable
type Nop struct{}

// Vibrate always fails with ErrUnavailable
func (Nop) Vibrate(time.Duration) error {
	return ErrUnavailable
}

// Bell rings the terminal bell for pulses of at least MinPulse. Shorter
// pulses are dropped so a drag does not turn into a continuous beep.
type Bell struct {
	w        io.Writer
	mu       sync.Mutex
	MinPulse time.Duration
}

// NewBell creates a Bell writing to w that sounds for pulses of 40ms and up
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w, MinPulse: 40 * time.Millisecond}
}

// Vibrate writes BEL to the terminal
func (b *Bell) Vibrate(d time.Duration) error {
	if d < b.MinPulse {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.w.Write([]byte{'\a'})
	return err
}

// Recorder collects pulses; tests use it to observe feedback
type Recorder struct {
	mu     sync.Mutex
	pulses []time.Duration
	Err    error
}

// Vibrate records d and returns r.Err
func (r *Recorder) Vibrate(d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pulses = append(r.pulses, d)
	return r.Err
}

// Pulses returns the recorded pulse lengths in order
func (r *Recorder) Pulses() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.pulses...)
}
