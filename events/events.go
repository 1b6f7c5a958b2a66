// Package events defines the three overlay lifecycle channels and manages
// their subscriptions as one unit.
package events

import (
	"errors"
	"fmt"
	"sync"
)

type Name string

const (
	ShowOverlay Name = "show-overlay"
	HideOverlay Name = "hide-overlay"
	MicLevel    Name = "mic-level"
)

// Names lists the channels an overlay subscribes to, in subscription order.
var Names = []Name{ShowOverlay, HideOverlay, MicLevel}

// Event is one inbound signal. Mode is set for show-overlay, Levels for
// mic-level; hide-overlay carries nothing.
type Event struct {
	Name   Name
	Mode   string
	Levels []float64
}

type Handler func(Event)

// Unlisten releases a single subscription.
type Unlisten func()

// Source delivers events for a channel name to a handler. Implementations
// must call handlers for all channels from one goroutine, in arrival order.
type Source interface {
	Listen(name Name, h Handler) (Unlisten, error)
}

var ErrClosed = errors.New("events: source closed")

// Handlers routes each channel to its callback.
type Handlers struct {
	Show  func(mode string)
	Hide  func()
	Level func(levels []float64)
}

// Handle is the live subscription set returned by Open.
type Handle struct {
	once     sync.Once
	unlisten []Unlisten
}

// Open subscribes to show-overlay, hide-overlay and mic-level. If any
// subscription fails the ones already taken are released before the error
// is returned, so a failed Open leaves nothing behind.
func Open(src Source, h Handlers) (*Handle, error) {
	route := map[Name]Handler{
		ShowOverlay: func(ev Event) {
			if h.Show != nil {
				h.Show(ev.Mode)
			}
		},
		HideOverlay: func(Event) {
			if h.Hide != nil {
				h.Hide()
			}
		},
		MicLevel: func(ev Event) {
			if h.Level != nil {
				h.Level(ev.Levels)
			}
		},
	}

	handle := &Handle{}
	for _, name := range Names {
		un, err := src.Listen(name, route[name])
		if err != nil {
			handle.Close()
			return nil, fmt.Errorf("subscribe %s: %w", name, err)
		}
		handle.unlisten = append(handle.unlisten, un)
	}
	return handle, nil
}

// Close releases every subscription. Only the first call has an effect.
func (h *Handle) Close() {
	h.once.Do(func() {
		for _, un := range h.unlisten {
			un()
		}
		h.unlisten = nil
	})
}
