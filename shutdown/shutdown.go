// Package shutdown reports the signals that should stop the process.
package shutdown

import (
	"context"
	"os"
	"os/signal"
)

func Notify(ch chan<- os.Signal) {
	signal.Notify(ch, signals...)
}

// Wait blocks until a termination signal arrives or ctx is done. It returns
// nil in the second case.
func Wait(ctx context.Context) os.Signal {
	ch := make(chan os.Signal, 1)
	Notify(ch)
	defer signal.Stop(ch)
	select {
	case sig := <-ch:
		return sig
	case <-ctx.Done():
		return nil
	}
}
