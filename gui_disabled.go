//go:build !gui

package main

import (
	"fmt"
	"os"

	"handy/overlay"
)

func initGUI() {
	fmt.Fprintln(os.Stderr, "handy: built without GUI support (rebuild with -tags gui)")
	os.Exit(1)
}

func guiUpdate(overlay.Snapshot) {}
func guiQuit()                   {}
