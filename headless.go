package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"handy/overlay"
)

// printer writes one line per visibility or mode change. It backs the
// headless frontend and the stdin-driven test mode.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	prev    overlay.Snapshot
	started bool
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) Update(snap overlay.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started && snap.Visible == p.prev.Visible && snap.Mode == p.prev.Mode {
		p.prev = snap
		return
	}
	p.started = true
	p.prev = snap
	fmt.Fprintln(p.out, describe(snap))
}

func (p *printer) println(s string) {
	p.mu.Lock()
	fmt.Fprintln(p.out, s)
	p.mu.Unlock()
}

func describe(snap overlay.Snapshot) string {
	switch {
	case !snap.Visible:
		return "overlay: hidden"
	case snap.Mode == overlay.Recording:
		return "overlay: recording " + snap.ElapsedText
	default:
		return "overlay: transcribing (" + snap.ElapsedText + ")"
	}
}

// runCommands reads test-mode commands from in until EOF, "quit" or ctx
// is done:
//
//	cancel   request a cancel (only honoured while recording)
//	state    print the current snapshot
//	levels   print the current display levels
//	quit     stop
func runCommands(ctx context.Context, in io.Reader, p *printer, coord *overlay.Coordinator, cancel func()) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			switch line {
			case "":
			case "cancel":
				cancel()
			case "state":
				snap := coord.Snapshot()
				p.println(fmt.Sprintf("state: visible=%t mode=%s elapsed=%d", snap.Visible, snap.Mode, snap.Elapsed))
			case "levels":
				snap := coord.Snapshot()
				parts := make([]string, len(snap.Levels))
				for i, v := range snap.Levels {
					parts[i] = fmt.Sprintf("%.3f", v)
				}
				p.println("levels: " + strings.Join(parts, " "))
			case "quit":
				return nil
			default:
				p.println("unknown command: " + line)
			}
		}
	}
}
