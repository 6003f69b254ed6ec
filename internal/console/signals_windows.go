//go:build windows

package console

import (
	"os"
	"os/signal"
	"syscall"
)

func setupSignals(sigChan chan os.Signal) chan os.Signal {
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return make(chan os.Signal) // never fires
}
