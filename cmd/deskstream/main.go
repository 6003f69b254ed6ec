// Command deskstream shares this machine's screen as an MJPEG stream.
//
// Usage:
//
//	deskstream [serve] [flags]
//	deskstream version
package main

import (
	"os"

	"deskstream/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
