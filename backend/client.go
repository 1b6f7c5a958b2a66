package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"handy/events"
	"handy/log"
)

// Client is an events.Source fed by the backend connection. Handlers run
// on the client's single read goroutine in arrival order.
type Client struct {
	addr string
	tr   transport

	mu        sync.Mutex
	next      int
	listeners map[events.Name]map[int]events.Handler
	closed    bool
	err       error

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to addr and subscribes to the overlay events. addr is a
// socket path, unix:///path, ws://host/path or wss://host/path.
func Dial(ctx context.Context, addr string) (*Client, error) {
	tr, err := dialTransport(ctx, addr)
	if err != nil {
		return nil, err
	}
	c := &Client{
		addr:      addr,
		tr:        tr,
		listeners: make(map[events.Name]map[int]events.Handler),
		done:      make(chan struct{}),
	}
	if err := c.send(subscribeCommand()); err != nil {
		tr.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Addr() string { return c.addr }

func (c *Client) Listen(name events.Name, h events.Handler) (events.Unlisten, error) {
	if !slices.Contains(events.Names, name) {
		return nil, fmt.Errorf("backend: no channel %q", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, events.ErrClosed
	}
	if c.listeners[name] == nil {
		c.listeners[name] = make(map[int]events.Handler)
	}
	id := c.next
	c.next++
	c.listeners[name][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners[name], id)
			c.mu.Unlock()
		})
	}, nil
}

// CancelOperation asks the backend to abort. No reply is awaited; write
// failures are only logged.
func (c *Client) CancelOperation() {
	if err := c.send(Command{Cmd: CmdCancel}); err != nil {
		log.Warnf("cancel-operation not delivered: %v", err)
	}
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err reports why the connection ended. It is nil after Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		err = c.tr.Close()
		<-c.done
	})
	return err
}

func (c *Client) send(cmd Command) error {
	data, err := encodeCommand(cmd)
	if err != nil {
		return err
	}
	return c.tr.WriteMessage(data)
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		data, err := c.tr.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if !c.closed {
				c.err = err
				c.closed = true
			}
			c.mu.Unlock()
			return
		}

		ev, err := Decode(data)
		if errors.Is(err, ErrUnknownEvent) {
			log.Debugf("backend: ignoring %v", err)
			continue
		}
		if err != nil {
			log.Warnf("backend: skipping malformed message: %v", err)
			continue
		}
		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev events.Event) {
	c.mu.Lock()
	hs := make([]events.Handler, 0, len(c.listeners[ev.Name]))
	for _, h := range c.listeners[ev.Name] {
		hs = append(hs, h)
	}
	c.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}
