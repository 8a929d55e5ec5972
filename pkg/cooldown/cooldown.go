// Package cooldown implements the per-page countdown that gates repeat faucet
// submissions.
package cooldown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timer is a countdown in whole seconds. The zero value is an expired timer.
type Timer struct {
	remaining int
}

// New returns a timer with the given seconds remaining.
func New(seconds int) Timer {
	if seconds < 0 {
		seconds = 0
	}
	return Timer{remaining: seconds}
}

// Remaining returns the seconds left, never negative.
func (t Timer) Remaining() int { return t.remaining }

// Active reports whether submissions are currently blocked.
func (t Timer) Active() bool { return t.remaining > 0 }

// Reset restarts the countdown at d, truncated to whole seconds.
func (t *Timer) Reset(d time.Duration) {
	*t = New(int(d / time.Second))
}

// Tick consumes one elapsed second. It reports whether the timer is still
// running afterwards; an expired timer stays at zero.
func (t *Timer) Tick() bool {
	if t.remaining > 0 {
		t.remaining--
	}
	return t.remaining > 0
}

func (t Timer) String() string { return Format(t.remaining) }

// Format renders seconds as "Ss", "Mm Ss" or "Hh Mm Ss".
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// Schedule tracks which recurring tick currently owns a timer. Every Arm
// supersedes earlier ones: ticks stamped with an older generation must be
// discarded by the receiver instead of decrementing the timer again.
type Schedule struct {
	gen   uint64
	armed bool
}

// Arm starts a new tick chain and returns its generation.
func (s *Schedule) Arm() uint64 {
	s.gen++
	s.armed = true
	return s.gen
}

// Accept reports whether a tick from gen is still the live one.
func (s *Schedule) Accept(gen uint64) bool {
	return s.armed && gen == s.gen
}

// Stop releases the current tick chain.
func (s *Schedule) Stop() {
	s.armed = false
}

// Armed reports whether a tick chain is live.
func (s Schedule) Armed() bool { return s.armed }

// Runner drives a Timer from a clock for consumers that are not part of the
// TUI event loop. At most one ticker is alive per Runner.
type Runner struct {
	clock  clock.Clock
	onTick func(remaining int)

	mu     sync.Mutex
	timer  Timer
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner. onTick is called after every decrement and may
// be nil.
func NewRunner(c clock.Clock, onTick func(remaining int)) *Runner {
	if c == nil {
		c = clock.New()
	}
	return &Runner{clock: c, onTick: onTick}
}

// Start resets the countdown to d and (re)starts the ticker, stopping any
// previous one first.
func (r *Runner) Start(ctx context.Context, d time.Duration) {
	r.Stop()

	r.mu.Lock()
	r.timer.Reset(d)
	if !r.timer.Active() {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	ticker := r.clock.Ticker(time.Second)
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.mu.Lock()
				running := r.timer.Tick()
				remaining := r.timer.Remaining()
				r.mu.Unlock()
				if r.onTick != nil {
					r.onTick(remaining)
				}
				if !running {
					return
				}
			}
		}
	}()
}

// Stop cancels the ticker and waits for it to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Remaining returns the seconds left.
func (r *Runner) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer.Remaining()
}

// Done returns a channel closed when the current ticker exits, or nil when
// none is running.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}
