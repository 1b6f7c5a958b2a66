// Package hotkey listens for the global cancel chord, Ctrl+Shift+X.
package hotkey

import "context"

const Chord = "Ctrl+Shift+X"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
}

// Watch calls fire for every chord press while enabled reports true.
// Presses while disabled are dropped. It returns when ctx is done.
func Watch(ctx context.Context, hk Hotkey, enabled func() bool, fire func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
			if enabled == nil || enabled() {
				fire()
			}
		}
	}
}
