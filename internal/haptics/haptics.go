// Package haptics provides best-effort tactile feedback for committed gestures.
package haptics

import (
	"io"
	"sync"
	"time"
)

// Buzzer emits a short vibration. Implementations may ignore d.
type Buzzer interface {
	Buzz(d time.Duration) error
}

// Noop discards every buzz.
type Noop struct{}

func (Noop) Buzz(time.Duration) error { return nil }

// Bell rings the terminal bell, the closest thing a terminal has to a vibration.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell returns a Bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) Buzz(time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.w, "\a")
	return err
}
