package elapsed

import (
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0s"},
		{1, "1s"},
		{59, "59s"},
		{60, "1:00"},
		{75, "1:15"},
		{119, "1:59"},
		{600, "10:00"},
		{3661, "61:01"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// drive runs the owner loop for d and returns how many ticks were advanced.
func drive(tm *Timer, d time.Duration) int {
	n := 0
	deadline := time.After(d)
	for {
		select {
		case <-tm.C():
			tm.Advance()
			n++
		case <-deadline:
			return n
		}
	}
}

func TestTimerTicks(t *testing.T) {
	var last int
	tm := New(20*time.Millisecond, func(s int) { last = s })
	tm.Start()
	defer tm.Stop()

	n := drive(tm, 110*time.Millisecond)
	if n < 3 || n > 5 {
		t.Fatalf("ticks = %d, want about 5", n)
	}
	if tm.Seconds() != n || last != n {
		t.Errorf("Seconds() = %d, onTick saw %d, want %d", tm.Seconds(), last, n)
	}
}

func TestTimerDoubleStartSingleStream(t *testing.T) {
	interval := 40 * time.Millisecond
	tm := New(interval, nil)
	tm.Start()
	old := tm.C()
	tm.Start()
	defer tm.Stop()

	if tm.C() == old {
		t.Fatal("second Start kept the old schedule")
	}

	// Within one interval of the restart nothing may fire.
	if n := drive(tm, interval/2); n != 0 {
		t.Fatalf("got %d ticks within half an interval of Start", n)
	}
	// The old schedule must stay silent.
	select {
	case <-old:
		t.Fatal("stopped schedule delivered a tick")
	case <-time.After(2 * interval):
	}
}

func TestTimerStopInactiveNoop(t *testing.T) {
	tm := New(time.Second, nil)
	tm.Stop()
	tm.Stop()
	if tm.Active() {
		t.Fatal("timer active after Stop")
	}
	if tm.C() != nil {
		t.Fatal("inactive timer exposes a channel")
	}
}

func TestTimerResetKeepsActivity(t *testing.T) {
	tm := New(10*time.Millisecond, nil)
	tm.Start()
	defer tm.Stop()
	drive(tm, 35*time.Millisecond)
	if tm.Seconds() == 0 {
		t.Fatal("no ticks recorded")
	}

	tm.Reset()
	if tm.Seconds() != 0 {
		t.Errorf("Seconds() = %d after Reset, want 0", tm.Seconds())
	}
	if !tm.Active() {
		t.Error("Reset stopped the timer")
	}

	tm.Stop()
	tm.Reset()
	if tm.Active() {
		t.Error("Reset started the timer")
	}
}

func TestTimerAdvanceAfterStopDropped(t *testing.T) {
	tm := New(time.Second, nil)
	tm.Start()
	tm.Advance()
	tm.Stop()
	tm.Advance()
	if tm.Seconds() != 1 {
		t.Errorf("Seconds() = %d, want 1", tm.Seconds())
	}
}

type countingTicker struct {
	c       chan time.Time
	stopped bool
}

func (c *countingTicker) Chan() <-chan time.Time { return c.c }
func (c *countingTicker) Stop()                  { c.stopped = true }

func TestTimerRestartStopsPreviousTicker(t *testing.T) {
	var made []*countingTicker
	tm := New(time.Second, nil, WithTickerFunc(func(time.Duration) Ticker {
		ct := &countingTicker{c: make(chan time.Time)}
		made = append(made, ct)
		return ct
	}))

	tm.Start()
	tm.Start()
	tm.Start()
	if len(made) != 3 {
		t.Fatalf("created %d tickers, want 3", len(made))
	}
	live := 0
	for _, ct := range made {
		if !ct.stopped {
			live++
		}
	}
	if live != 1 || made[2].stopped {
		t.Errorf("live tickers = %d (last stopped=%v), want only the newest", live, made[2].stopped)
	}
	tm.Stop()
	if !made[2].stopped {
		t.Error("Stop left the ticker running")
	}
}
