// Package elapsed implements the recording counter shown next to the meter.
package elapsed

import (
	"fmt"
	"time"
)

// DefaultInterval is one counter step.
const DefaultInterval = time.Second

// Ticker is the periodic schedule behind a Timer.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// TickerFunc creates a running schedule with the given period.
type TickerFunc func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) Chan() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()                  { s.t.Stop() }

// NewTicker is the default TickerFunc, backed by time.Ticker.
func NewTicker(d time.Duration) Ticker { return stdTicker{time.NewTicker(d)} }

// Timer counts whole intervals while active. It is not safe for concurrent
// use: a single owner goroutine selects on C and calls Advance for every
// value it receives.
type Timer struct {
	interval  time.Duration
	onTick    func(seconds int)
	newTicker TickerFunc
	ticker    Ticker
	seconds   int
}

type Option func(*Timer)

// WithTickerFunc replaces time.Ticker, mainly for tests.
func WithTickerFunc(f TickerFunc) Option {
	return func(t *Timer) {
		if f != nil {
			t.newTicker = f
		}
	}
}

func New(interval time.Duration, onTick func(seconds int), opts ...Option) *Timer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := &Timer{interval: interval, onTick: onTick, newTicker: NewTicker}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start (re)creates the periodic schedule. A running schedule is stopped
// first, so there is never more than one tick stream.
func (t *Timer) Start() {
	t.Stop()
	t.ticker = t.newTicker(t.interval)
}

func (t *Timer) Stop() {
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	t.ticker = nil
}

// Reset zeroes the counter without changing whether the timer runs.
func (t *Timer) Reset() { t.seconds = 0 }

func (t *Timer) Active() bool { return t.ticker != nil }

func (t *Timer) Seconds() int { return t.seconds }

// C returns the current schedule's channel, or nil while inactive so that a
// select case on it never fires.
func (t *Timer) C() <-chan time.Time {
	if t.ticker == nil {
		return nil
	}
	return t.ticker.Chan()
}

// Advance records one tick. Ticks that arrive after Stop are dropped.
func (t *Timer) Advance() {
	if t.ticker == nil {
		return
	}
	t.seconds++
	if t.onTick != nil {
		t.onTick(t.seconds)
	}
}

// Format renders seconds as "42s" below a minute and "1:15" from there on.
func Format(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
