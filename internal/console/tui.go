// Package console is the interactive terminal front end: banner, share
// details, a live status line and the resolution picker.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"

	"deskstream/internal/constants"
	"deskstream/internal/events"
	"deskstream/internal/types"
	"deskstream/internal/utils"
)

const (
	ColorReset  = constants.ColorReset
	ColorBold   = constants.ColorBold
	ColorDim    = constants.ColorDim
	ColorCyan   = constants.ColorCyan
	ColorGreen  = constants.ColorGreen
	ColorYellow = constants.ColorYellow
	ColorRed    = constants.ColorRed
	ColorPurple = constants.ColorPurple
)

// lockedWriter lets the event printer and the status loop share a terminal.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func PrintBanner(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s%s%s%s %sv%s%s\n", ColorBold, ColorCyan, constants.AppName, ColorReset, ColorBold, constants.Version, ColorReset)
	fmt.Fprintf(w, "  %sDesktop streaming over MJPEG%s\n", ColorDim, ColorReset)
	fmt.Fprintf(w, "  %s⚠️  Anyone with the share URL can watch your screen.%s\n", ColorYellow, ColorReset)
	fmt.Fprintln(w)
}

func PrintHint(w io.Writer, text string) {
	fmt.Fprintf(w, "  %s%s%s\n", ColorDim, text, ColorReset)
}

func PrintStep(w io.Writer, number int, text string) {
	fmt.Fprintf(w, "  %s%s%d ▸%s %s\n", ColorBold, ColorCyan, number, ColorReset, text)
}

func PrintField(w io.Writer, label, value, valueColor string) {
	fmt.Fprintf(w, "  %s%-12s%s %s%s%s\n", ColorDim, label, ColorReset, valueColor, value, ColorReset)
}

func PrintSep(w io.Writer) {
	fmt.Fprintf(w, "  %s%s%s\n", ColorDim, strings.Repeat("─", 50), ColorReset)
}

// PrintQR renders url as a terminal QR code so a phone can open the stream.
func PrintQR(w io.Writer, url string) error {
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(q.ToSmallString(false), "\n"), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	return nil
}

// Panel is what the console shows about the current run.
type Panel struct {
	ShareURL    string
	Mode        string
	Bind        string
	Dashboard   string
	Fingerprint string
	LogPath     string
	AuditPath   string
	MaxClients  int
	ShowQR      bool
}

func RenderPanel(w io.Writer, p Panel) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s%s● streaming%s\n", ColorBold, ColorGreen, ColorReset)
	fmt.Fprintln(w)
	PrintField(w, "share url", p.ShareURL, ColorCyan)
	PrintField(w, "stream", p.Mode, ColorReset)
	PrintField(w, "listening", p.Bind, ColorReset)
	if p.MaxClients > 0 {
		PrintField(w, "max viewers", fmt.Sprintf("%d", p.MaxClients), ColorReset)
	}
	if p.Dashboard != "" {
		PrintField(w, "dashboard", p.Dashboard, ColorPurple)
	}
	if p.Fingerprint != "" {
		PrintField(w, "key id", p.Fingerprint, ColorDim)
	}
	if p.LogPath != "" {
		PrintField(w, "logs", p.LogPath, ColorDim)
	}
	if p.AuditPath != "" {
		PrintField(w, "audit", p.AuditPath, ColorDim)
	}
	fmt.Fprintln(w)
	if p.ShowQR {
		if err := PrintQR(w, p.ShareURL); err != nil {
			PrintHint(w, "QR code unavailable: "+err.Error())
		}
		fmt.Fprintln(w)
	}
	PrintSep(w)
	PrintHint(w, "q + enter or ctrl+c to stop")
	fmt.Fprintln(w)
}

// RenderStatus redraws the single status line in place.
func RenderStatus(w io.Writer, st types.Stats, uptime time.Duration) {
	state := ColorGreen + "●" + ColorReset
	if !st.Running {
		state = ColorRed + "●" + ColorReset
	}
	fmt.Fprintf(w, "\r\033[K  %s %sActive clients:%s %d   %sframes%s %d   %ssent%s %s   %sup%s %s",
		state,
		ColorDim, ColorReset, st.ActiveSessions,
		ColorDim, ColorReset, st.FramesSent,
		ColorDim, ColorReset, utils.FormatBytes(st.BytesSent),
		ColorDim, ColorReset, utils.FormatDuration(uptime),
	)
}

var eventIcons = map[events.Type]string{
	events.ServerStarted:    "🚀",
	events.ServerStopped:    "🛑",
	events.SessionStreaming: "🎥",
	events.AuthFailed:       "🚫",
	events.AuthBlocked:      "⛔",
	events.SessionRejected:  "🙅",
	events.SessionClosed:    "👋",
}

// EventLine formats ev for the terminal. Events that are too chatty to show
// return "".
func EventLine(ev events.Event) string {
	icon, ok := eventIcons[ev.Type]
	if !ok {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %s %s%s%s %s", icon, ColorDim, ev.Timestamp.Format(constants.TimeFormatShort), ColorReset, ev.Type)
	if ev.RemoteAddr != "" {
		fmt.Fprintf(&b, " %s", ev.RemoteAddr)
	}
	if ev.Details != "" {
		fmt.Fprintf(&b, " %s(%s)%s", ColorDim, ev.Details, ColorReset)
	}
	if ev.Type == events.SessionClosed {
		fmt.Fprintf(&b, " %d frames, %s", ev.FramesSent, utils.FormatBytes(ev.BytesSent))
	}
	if ev.Error != "" {
		fmt.Fprintf(&b, " %s%s%s", ColorRed, ev.Error, ColorReset)
	}
	return b.String()
}
