package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"handy/events"
)

// mockBackend is the server half of one connection. Tests push lines with
// emit and read the overlay's commands from cmds.
type mockBackend struct {
	cmds  chan Command
	emit  func(line string)
	close func()
}

func startUnixBackend(t *testing.T) (string, <-chan *mockBackend) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "backend.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	conns := make(chan *mockBackend, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		mb := &mockBackend{cmds: make(chan Command, 16)}
		var wmu sync.Mutex
		mb.emit = func(line string) {
			wmu.Lock()
			defer wmu.Unlock()
			conn.Write([]byte(line + "\n"))
		}
		mb.close = func() { conn.Close() }
		go func() {
			sc := bufio.NewScanner(conn)
			for sc.Scan() {
				var cmd Command
				if json.Unmarshal(sc.Bytes(), &cmd) == nil {
					mb.cmds <- cmd
				}
			}
		}()
		conns <- mb
	}()
	return sockPath, conns
}

func startWSBackend(t *testing.T) (string, <-chan *mockBackend) {
	t.Helper()
	conns := make(chan *mockBackend, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mb := &mockBackend{cmds: make(chan Command, 16)}
		var wmu sync.Mutex
		mb.emit = func(line string) {
			wmu.Lock()
			defer wmu.Unlock()
			conn.WriteMessage(websocket.TextMessage, []byte(line))
		}
		mb.close = func() { conn.Close() }
		go func() {
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var cmd Command
				if json.Unmarshal(data, &cmd) == nil {
					mb.cmds <- cmd
				}
			}
		}()
		conns <- mb
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/overlay", conns
}

func waitBackend(t *testing.T, conns <-chan *mockBackend) *mockBackend {
	t.Helper()
	select {
	case mb := <-conns:
		return mb
	case <-time.After(2 * time.Second):
		t.Fatal("backend saw no connection")
		return nil
	}
}

func waitCmd(t *testing.T, mb *mockBackend) Command {
	t.Helper()
	select {
	case cmd := <-mb.cmds:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command")
		return Command{}
	}
}

func waitEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func exerciseClient(t *testing.T, addr string, conns <-chan *mockBackend) {
	c := dial(t, addr)
	mb := waitBackend(t, conns)

	if cmd := waitCmd(t, mb); cmd.Cmd != CmdSubscribe || len(cmd.Events) != 3 {
		t.Fatalf("first command = %+v, want subscribe to 3 events", cmd)
	}

	got := make(chan events.Event, 16)
	h, err := events.Open(c, events.Handlers{
		Show:  func(m string) { got <- events.Event{Name: events.ShowOverlay, Mode: m} },
		Hide:  func() { got <- events.Event{Name: events.HideOverlay} },
		Level: func(l []float64) { got <- events.Event{Name: events.MicLevel, Levels: l} },
	})
	if err != nil {
		t.Fatalf("events.Open: %v", err)
	}
	defer h.Close()

	mb.emit(`{"event":"show-overlay","payload":"recording"}`)
	mb.emit(`not json`)
	mb.emit(`{"event":"something-else"}`)
	mb.emit(`{"event":"mic-level","payload":[0.25,0.5]}`)
	mb.emit(`{"event":"mic-level","payload":"loud"}`)
	mb.emit(`{"event":"hide-overlay"}`)

	if ev := waitEvent(t, got); ev.Name != events.ShowOverlay || ev.Mode != "recording" {
		t.Errorf("event 1 = %+v", ev)
	}
	if ev := waitEvent(t, got); ev.Name != events.MicLevel || len(ev.Levels) != 2 || ev.Levels[1] != 0.5 {
		t.Errorf("event 2 = %+v", ev)
	}
	if ev := waitEvent(t, got); ev.Name != events.MicLevel || len(ev.Levels) != 0 {
		t.Errorf("event 3 = %+v, want empty levels", ev)
	}
	if ev := waitEvent(t, got); ev.Name != events.HideOverlay {
		t.Errorf("event 4 = %+v", ev)
	}

	c.CancelOperation()
	c.CancelOperation()
	for i := 0; i < 2; i++ {
		if cmd := waitCmd(t, mb); cmd.Cmd != CmdCancel {
			t.Errorf("command = %+v, want cancel-operation", cmd)
		}
	}
}

func TestUnixClient(t *testing.T) {
	addr, conns := startUnixBackend(t)
	exerciseClient(t, addr, conns)
}

func TestUnixSchemeAddress(t *testing.T) {
	addr, conns := startUnixBackend(t)
	exerciseClient(t, "unix://"+addr, conns)
}

func TestWebsocketClient(t *testing.T) {
	addr, conns := startWSBackend(t)
	exerciseClient(t, addr, conns)
}

func TestUnlistenStopsDelivery(t *testing.T) {
	addr, conns := startUnixBackend(t)
	c := dial(t, addr)
	mb := waitBackend(t, conns)
	waitCmd(t, mb)

	got := make(chan events.Event, 4)
	un, err := c.Listen(events.HideOverlay, func(ev events.Event) { got <- ev })
	if err != nil {
		t.Fatal(err)
	}
	marker := make(chan events.Event, 4)
	if _, err := c.Listen(events.ShowOverlay, func(ev events.Event) { marker <- ev }); err != nil {
		t.Fatal(err)
	}

	un()
	mb.emit(`{"event":"hide-overlay"}`)
	mb.emit(`{"event":"show-overlay","payload":"recording"}`)
	waitEvent(t, marker)

	select {
	case ev := <-got:
		t.Errorf("unlistened handler got %+v", ev)
	default:
	}
}

func TestListenUnknownChannel(t *testing.T) {
	addr, conns := startUnixBackend(t)
	c := dial(t, addr)
	waitBackend(t, conns)
	if _, err := c.Listen("paste-text", func(events.Event) {}); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestListenAfterClose(t *testing.T) {
	addr, conns := startUnixBackend(t)
	c := dial(t, addr)
	waitBackend(t, conns)
	c.Close()
	if _, err := c.Listen(events.ShowOverlay, func(events.Event) {}); err != events.ErrClosed {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v after Close, want nil", c.Err())
	}
}

func TestConnectionLoss(t *testing.T) {
	addr, conns := startUnixBackend(t)
	c := dial(t, addr)
	mb := waitBackend(t, conns)
	mb.close()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after backend hung up")
	}
	if c.Err() == nil {
		t.Error("Err() = nil after connection loss")
	}
}

func TestDialMissingSocket(t *testing.T) {
	_, err := Dial(context.Background(), filepath.Join(t.TempDir(), "nope.sock"))
	if err == nil {
		t.Fatal("expected dial error")
	}
}
