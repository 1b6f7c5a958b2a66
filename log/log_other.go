//go:build !windows

package log

import (
	"os"
	"path/filepath"
	"runtime"
)

// defaultDir is ~/Library/Logs/handy on macOS and $XDG_STATE_HOME/handy
// (falling back to ~/.local/state/handy) elsewhere.
func defaultDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" && runtime.GOOS != "darwin" {
		return filepath.Join(dir, "handy"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "handy"), nil
	}
	return filepath.Join(home, ".local", "state", "handy"), nil
}
