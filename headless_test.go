package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"handy/events"
	"handy/overlay"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimRight(b.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestPrinterWritesOnModeChanges(t *testing.T) {
	var out syncBuffer
	p := newPrinter(&out)
	for _, snap := range []overlay.Snapshot{
		hidden, recording, withElapsed(recording, 1), transcribing, transcribing, hidden,
	} {
		p.Update(snap)
	}
	want := []string{
		"overlay: hidden",
		"overlay: recording 0s",
		"overlay: transcribing (3s)",
		"overlay: hidden",
	}
	got := out.Lines()
	if len(got) != len(want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func waitSnapshot(t *testing.T, c *overlay.Coordinator, cond func(overlay.Snapshot) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond(c.Snapshot()) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met, snapshot %+v", c.Snapshot())
}

func TestRunCommands(t *testing.T) {
	fake := events.NewFake()
	coord := overlay.New(fake, nil, overlay.WithTickInterval(time.Hour))
	dispose, err := coord.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer dispose()

	fake.Show("recording")
	fake.Level(1)
	waitSnapshot(t, coord, func(s overlay.Snapshot) bool { return s.Visible && s.Levels[0] > 0 })

	var out syncBuffer
	p := newPrinter(&out)
	cancels := 0
	in := strings.NewReader("state\n\nbogus\ncancel\nlevels\nquit\ncancel\n")
	if err := runCommands(context.Background(), in, p, coord, func() { cancels++ }); err != nil {
		t.Fatalf("runCommands: %v", err)
	}

	if cancels != 1 {
		t.Errorf("cancels = %d, want 1 (commands after quit are ignored)", cancels)
	}
	got := out.Lines()
	if len(got) != 3 {
		t.Fatalf("lines = %q, want 3", got)
	}
	if got[0] != "state: visible=true mode=recording elapsed=0" {
		t.Errorf("state line = %q", got[0])
	}
	if got[1] != "unknown command: bogus" {
		t.Errorf("unknown line = %q", got[1])
	}
	if !strings.HasPrefix(got[2], "levels: 0.300 0.000") {
		t.Errorf("levels line = %q", got[2])
	}
}

func TestRunCommandsEOF(t *testing.T) {
	coord := overlay.New(events.NewFake(), nil)
	var out syncBuffer
	if err := runCommands(context.Background(), strings.NewReader("state\n"), newPrinter(&out), coord, func() {}); err != nil {
		t.Fatalf("runCommands: %v", err)
	}
	if got := out.Lines(); len(got) != 1 || got[0] != "state: visible=false mode=hidden elapsed=0" {
		t.Errorf("lines = %q", got)
	}
}

func TestRunCommandsStopsOnContext(t *testing.T) {
	coord := overlay.New(events.NewFake(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	// a reader that never returns keeps the scanner blocked
	r, w := newBlockingPipe()
	defer w()

	done := make(chan error, 1)
	go func() { done <- runCommands(ctx, r, newPrinter(&syncBuffer{}), coord, func() {}) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runCommands did not return after cancel")
	}
}

type blockingReader struct{ release chan struct{} }

func (b blockingReader) Read([]byte) (int, error) {
	<-b.release
	return 0, context.Canceled
}

func newBlockingPipe() (blockingReader, func()) {
	r := blockingReader{release: make(chan struct{})}
	return r, func() { close(r.release) }
}
