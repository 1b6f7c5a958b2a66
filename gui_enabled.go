//go:build gui

package main

import (
	"fmt"
	"os"
	"runtime"

	"handy/gui"
	"handy/overlay"
)

var guiApp *gui.App

// initGUI takes the main thread for fyne and starts run on another goroutine.
func initGUI() {
	guiMode = true
	runtime.LockOSThread()

	guiApp = gui.NewApp(run, requestCancel)
	if err := gui.Run(guiApp); err != nil {
		fmt.Fprintf(os.Stderr, "Error: GUI: %v\n", err)
		os.Exit(1)
	}
}

func guiUpdate(snap overlay.Snapshot) {
	if guiApp != nil {
		guiApp.Update(snap)
	}
}

func guiQuit() {
	if guiApp != nil {
		guiApp.Quit()
	}
}
