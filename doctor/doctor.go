// Package doctor runs interactive checks of everything the overlay needs
// outside its own process.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"handy/backend"
	"handy/beep"
	"handy/config"
	"handy/events"
	"handy/hotkey"
	"handy/shutdown"
)

const (
	hotkeyWait = 10 * time.Second
	eventWait  = 15 * time.Second
)

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(cfg *config.Config, cfgPath string) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("handy doctor - interactive system diagnostics")
	fmt.Println("==============================================")
	if cfgPath != "" {
		fmt.Printf("config: %s\n", cfgPath)
	} else {
		fmt.Println("config: built-in defaults")
	}

	in := bufio.NewReader(os.Stdin)
	allPass := true

	client, ok := checkBackend(cfg)
	if !ok {
		allPass = false
	} else {
		if !checkEvents(client, in) {
			allPass = false
		}
		client.Close()
	}
	if !checkHotkey() {
		allPass = false
	}
	if cfg.Overlay.Sound && !checkCues(in) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func setupInterruptHandler() {
	go func() {
		if shutdown.Wait(context.Background()) != nil {
			fmt.Println("\nInterrupted")
			os.Exit(1)
		}
	}()
}

func checkBackend(cfg *config.Config) (*backend.Client, bool) {
	fmt.Println()
	fmt.Println("[1/4] Backend connection")
	fmt.Printf("Connecting to %s...\n", cfg.Backend.Address)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.DialTimeout)
	defer cancel()
	start := time.Now()
	c, err := backend.Dial(ctx, cfg.Backend.Address)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	fmt.Printf("  PASS: connected and subscribed in %s\n", time.Since(start).Round(time.Millisecond))
	return c, true
}

// checkEvents waits for the backend to show the overlay. The user starts a
// recording in the backend to produce one.
func checkEvents(c *backend.Client, in *bufio.Reader) bool {
	fmt.Println()
	fmt.Println("[2/4] Overlay events")
	fmt.Println("Start a recording in the backend now...")

	got := make(chan events.Event, 1)
	h, err := events.Open(c, events.Handlers{
		Show: func(mode string) {
			select {
			case got <- events.Event{Name: events.ShowOverlay, Mode: mode}:
			default:
			}
		},
	})
	if err != nil {
		fmt.Printf("  FAIL: could not subscribe: %v\n", err)
		return false
	}
	defer h.Close()

	select {
	case ev := <-got:
		fmt.Printf("  PASS: received show-overlay (%s)\n", ev.Mode)
		if ev.Mode == "recording" && confirm(in, "Send cancel-operation to stop it? [y/n]: ") {
			c.CancelOperation()
			fmt.Println("  cancel-operation sent")
		}
		return true
	case <-c.Done():
		fmt.Printf("  FAIL: backend closed the connection: %v\n", c.Err())
		return false
	case <-time.After(eventWait):
		fmt.Println("  FAIL: timeout waiting for show-overlay")
		return false
	}
}

func checkHotkey() bool {
	fmt.Println()
	fmt.Println("[3/4] Cancel hotkey")

	info, err := hotkey.Diagnose()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  %s\n", info)

	fmt.Printf("Press %s...\n", hotkey.Chord)
	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: hotkey detected")
		// the chord may leave the terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(hotkeyWait):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkCues(in *bufio.Reader) bool {
	fmt.Println()
	fmt.Println("[4/4] Audio cues")

	beep.Init()
	for _, c := range []beep.Cue{beep.CueStart, beep.CueEnd, beep.CueCancel} {
		fmt.Printf("  playing %s cue\n", c)
		beep.Play(c)
		time.Sleep(400 * time.Millisecond)
	}

	if confirm(in, "Did you hear three cues? [y/n]: ") {
		fmt.Println("  PASS: audio cues verified by user")
		return true
	}
	fmt.Println("  FAIL: audio cues not confirmed")
	return false
}

func confirm(in io.Reader, prompt string) bool {
	fmt.Print(prompt)
	r, ok := in.(*bufio.Reader)
	if !ok {
		r = bufio.NewReader(in)
	}
	answer, _ := r.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}
