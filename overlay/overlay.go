// Package overlay coordinates the recording overlay: it turns the backend's
// show/hide/level signals into a render-ready Snapshot and runs the elapsed
// counter while recording.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"handy/elapsed"
	"handy/events"
	"handy/level"
	"handy/log"
	"handy/observe"
)

type Mode string

const (
	Hidden       Mode = "hidden"
	Recording    Mode = "recording"
	Transcribing Mode = "transcribing"
)

// Snapshot is a copy of the overlay state for presentation.
type Snapshot struct {
	Visible     bool
	Mode        Mode
	Elapsed     int
	ElapsedText string
	Levels      level.Display
}

// Canceller receives the user's request to abort the in-flight operation.
// Delivery is fire-and-forget.
type Canceller interface {
	CancelOperation()
}

// CancelFunc adapts a plain function to Canceller.
type CancelFunc func()

func (f CancelFunc) CancelOperation() { f() }

var ErrAlreadyOpen = errors.New("overlay: already opened")

const defaultInboxSize = 64

type Option func(*Coordinator)

// WithTickInterval overrides the one-second counter step.
func WithTickInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.interval = d }
}

func WithTickerFunc(f elapsed.TickerFunc) Option {
	return func(c *Coordinator) { c.tickerFunc = f }
}

func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithInboxSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.inboxSize = n
		}
	}
}

// Coordinator owns the overlay state. Inbound events and timer ticks are
// handled one at a time on a single loop goroutine; everything else only
// reads copies.
type Coordinator struct {
	src        events.Source
	canceller  Canceller
	interval   time.Duration
	tickerFunc elapsed.TickerFunc
	metrics    *observe.Metrics
	inboxSize  int

	// Owned by the loop goroutine.
	timer    *elapsed.Timer
	smoothed level.Vector
	state    Snapshot

	mu        sync.Mutex
	snap      Snapshot
	listeners []func(Snapshot)
	opened    bool

	inbox chan func()
	quit  chan struct{}
	done  chan struct{}
}

func New(src events.Source, canceller Canceller, opts ...Option) *Coordinator {
	c := &Coordinator{
		src:       src,
		canceller: canceller,
		interval:  elapsed.DefaultInterval,
		inboxSize: defaultInboxSize,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics, _ = observe.NewMetrics(noop.NewMeterProvider())
	}
	c.inbox = make(chan func(), c.inboxSize)

	var topts []elapsed.Option
	if c.tickerFunc != nil {
		topts = append(topts, elapsed.WithTickerFunc(c.tickerFunc))
	}
	c.timer = elapsed.New(c.interval, c.onTick, topts...)
	c.state = Snapshot{Mode: Hidden, ElapsedText: elapsed.Format(0)}
	c.snap = c.state
	return c
}

// Open subscribes to the backend's overlay events and starts the loop. It
// may be called once. The returned dispose releases all subscriptions,
// stops the timer and waits for the loop to exit; calling it more than once
// is harmless.
func (c *Coordinator) Open() (dispose func(), err error) {
	c.mu.Lock()
	if c.opened {
		c.mu.Unlock()
		return nil, ErrAlreadyOpen
	}
	c.opened = true
	c.mu.Unlock()

	h, err := events.Open(c.src, events.Handlers{
		Show: func(mode string) {
			c.post(func() { c.show(mode) })
		},
		Hide: func() {
			c.post(c.hide)
		},
		Level: func(raw []float64) {
			c.post(func() { c.micLevel(raw) })
		},
	})
	if err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}

	go c.loop()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.Close()
			close(c.quit)
			<-c.done
		})
	}, nil
}

// OnChange registers fn to run after every state change. Listeners run on
// the loop goroutine and must not block.
func (c *Coordinator) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Cancel asks the backend to abort the current operation. It does not change
// the overlay; the backend answers with its own hide or show event. Every
// call dispatches a request.
func (c *Coordinator) Cancel() {
	snap := c.Snapshot()
	log.CancelRequested(string(snap.Mode), snap.Elapsed)
	c.metrics.RecordCancel(context.Background())
	if c.canceller != nil {
		c.canceller.CancelOperation()
	}
}

// post queues fn for the loop. After disposal it is dropped.
func (c *Coordinator) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.quit:
	}
}

func (c *Coordinator) loop() {
	defer close(c.done)
	defer c.timer.Stop()
	for {
		select {
		case <-c.quit:
			return
		case fn := <-c.inbox:
			fn()
		case <-c.timer.C():
			c.timer.Advance()
		}
	}
}

func (c *Coordinator) show(raw string) {
	ctx := context.Background()
	c.metrics.RecordEvent(ctx, string(events.ShowOverlay))

	mode := Mode(raw)
	if mode != Recording && mode != Transcribing {
		log.Warnf("show-overlay: unknown mode %q, handling as transcribing", raw)
		mode = Transcribing
	}

	prev := c.state
	if mode == Recording {
		c.timer.Stop()
		c.timer.Reset()
		c.timer.Start()
	} else {
		c.endRecording(ctx)
	}

	c.metrics.SetVisible(ctx, prev.Visible, true)
	c.metrics.RecordShow(ctx, string(mode))
	c.state.Visible = true
	c.state.Mode = mode
	c.setElapsed(c.timer.Seconds())
	log.Transition(string(prev.Mode), string(mode), true, c.state.Elapsed)
	c.publish()
}

func (c *Coordinator) hide() {
	ctx := context.Background()
	c.metrics.RecordEvent(ctx, string(events.HideOverlay))

	prev := c.state
	c.endRecording(ctx)
	c.metrics.SetVisible(ctx, prev.Visible, false)
	c.state.Visible = false
	c.state.Mode = Hidden
	log.Transition(string(prev.Mode), string(Hidden), false, c.state.Elapsed)
	c.publish()
}

// endRecording stops the counter, keeping its value.
func (c *Coordinator) endRecording(ctx context.Context) {
	if c.timer.Active() {
		c.metrics.RecordRecordingDuration(ctx, c.timer.Seconds())
	}
	c.timer.Stop()
}

// micLevel smooths regardless of mode; renderers ignore levels outside
// recording.
func (c *Coordinator) micLevel(raw []float64) {
	c.metrics.RecordEvent(context.Background(), string(events.MicLevel))
	c.smoothed = level.Smooth(c.smoothed, raw)
	c.state.Levels = level.DisplayLevels(c.smoothed)
	c.publish()
}

func (c *Coordinator) onTick(seconds int) {
	c.metrics.RecordTick(context.Background())
	c.setElapsed(seconds)
	c.publish()
}

func (c *Coordinator) setElapsed(seconds int) {
	c.state.Elapsed = seconds
	c.state.ElapsedText = elapsed.Format(seconds)
}

func (c *Coordinator) publish() {
	c.mu.Lock()
	c.snap = c.state
	ls := make([]func(Snapshot), len(c.listeners))
	copy(ls, c.listeners)
	c.mu.Unlock()
	for _, fn := range ls {
		fn(c.state)
	}
}
