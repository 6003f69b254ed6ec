//go:build !windows

package console

import (
	"os"
	"os/signal"
	"syscall"
)

// setupSignals routes SIGINT and SIGTERM to sigChan and returns a channel
// that fires when the terminal is resized.
func setupSignals(sigChan chan os.Signal) chan os.Signal {
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	winchChan := make(chan os.Signal, 1)
	signal.Notify(winchChan, syscall.SIGWINCH)
	return winchChan
}
