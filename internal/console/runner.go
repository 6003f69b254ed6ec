package console

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"deskstream/internal/capture"
	"deskstream/internal/config"
	"deskstream/internal/constants"
	"deskstream/internal/dashboard"
	"deskstream/internal/events"
	"deskstream/internal/logger"
	"deskstream/internal/security"
	"deskstream/internal/server"
	"deskstream/internal/types"
)

type Options struct {
	Loader *config.Loader
	// Override re-applies command line flags on top of every load.
	Override       func(*config.Config)
	PickResolution bool
	ShowQR         bool

	In  io.Reader
	Out io.Writer
}

// Run starts streaming with the loaded configuration and drives the console
// until the user quits, a signal arrives or ctx is done. Edits to the .env
// file restart the stream with a fresh share URL.
func Run(ctx context.Context, opts Options) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	override := opts.Override
	if override == nil {
		override = func(*config.Config) {}
	}
	out := &lockedWriter{w: opts.Out}
	in := bufio.NewReader(opts.In)

	cfg, err := loadValid(opts.Loader, override)
	if err != nil {
		return err
	}

	PrintBanner(out)

	if opts.PickResolution {
		def, _ := types.ParseResolution(cfg.Resolution)
		res, err := PickResolution(in, out, displaySize(cfg.Display), def)
		if err != nil {
			return err
		}
		cfg.Resolution = res.Name()
		flags := override
		override = func(c *config.Config) {
			flags(c)
			c.Resolution = res.Name()
		}
		fmt.Fprintln(out)
	}

	runID := fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405"), uuid.NewString()[:8])
	sessionLog, err := logger.NewLogger(cfg.LogDir, runID)
	if err != nil {
		log.Printf("Warning: Failed to initialize session log: %v", err)
	}
	defer sessionLog.Close()

	auditDir := ""
	if cfg.LogDir != "" {
		auditDir = filepath.Join(cfg.LogDir, "audit")
	}
	audit, err := security.NewAuditLogger(auditDir)
	if err != nil {
		log.Printf("Warning: Failed to initialize audit logger: %v", err)
	}
	defer audit.Close()

	bus := events.NewBus(constants.EventBufferSize)
	if sessionLog != nil {
		bus.Subscribe(sessionLog)
	}
	if audit != nil {
		bus.Subscribe(audit)
	}
	if pub := events.NewRedisSink(ctx, cfg.Redis()); pub != nil {
		bus.Subscribe(pub)
		defer pub.Close()
	}
	bus.Subscribe(events.SinkFunc(func(_ context.Context, ev events.Event) error {
		if line := EventLine(ev); line != "" {
			fmt.Fprintf(out, "\r\033[K%s\n", line)
		}
		return nil
	}))

	srv := server.New(server.Config{
		NewSource:       newSource,
		Events:          bus,
		MaxClients:      cfg.MaxClients,
		MaxConnPerIP:    cfg.MaxConnPerIP,
		MaxAuthAttempts: cfg.MaxAuthAttempts,
		SendTimeout:     cfg.SendTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
	// Dispose flushes and closes the bus before the sinks above close.
	defer srv.Dispose()

	dashboardURL := ""
	if addr := cfg.DashboardAddr(); addr != "" {
		dash, err := dashboard.New(addr, srv, sessionLog.GetLogPath())
		if err == nil {
			err = dash.Start()
		}
		if err != nil {
			PrintHint(out, ColorYellow+"⚠ Dashboard failed to start: "+err.Error()+ColorReset)
		} else {
			bus.Subscribe(dash)
			dashboardURL = dash.URL()
			defer dash.Stop()
		}
	}

	panel := func(sc types.StreamConfig) Panel {
		addr := ""
		if a := srv.Addr(); a != nil {
			addr = a.String()
		}
		return Panel{
			ShareURL:    srv.URL(),
			Mode:        fmt.Sprintf("%s @ %s", sc.Resolution.Describe(displaySize(sc.Display)), sc.FrameRate),
			Bind:        addr,
			Dashboard:   dashboardURL,
			Fingerprint: srv.ShareInfo().Fingerprint,
			LogPath:     sessionLog.GetLogPath(),
			AuditPath:   audit.Path(),
			MaxClients:  cfg.MaxClients,
			ShowQR:      opts.ShowQR,
		}
	}

	sc, err := cfg.StreamConfig()
	if err != nil {
		return err
	}
	if _, err := srv.Start(ctx, sc); err != nil {
		return err
	}
	startedAt := time.Now()
	RenderPanel(out, panel(sc))

	reloads := make(chan *config.Config, 1)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		err := opts.Loader.Watch(watchCtx, func(c *config.Config, err error) {
			if err == nil {
				override(c)
				err = c.Validate()
			}
			if err != nil {
				fmt.Fprintf(out, "\r\033[K  %s✗ %s changed but was not applied: %v%s\n", ColorRed, opts.Loader.Path(), err, ColorReset)
				return
			}
			select {
			case <-reloads:
			default:
			}
			reloads <- c
		})
		if err != nil {
			log.Printf("⚠️  Not watching %s: %v", opts.Loader.Path(), err)
		}
	}()

	quit := make(chan struct{})
	go readCommands(in, quit)

	sigChan := make(chan os.Signal, 1)
	winch := setupSignals(sigChan)
	defer signal.Stop(sigChan)
	defer signal.Stop(winch)

	ticker := time.NewTicker(constants.StatusInterval)
	defer ticker.Stop()

	defer func() {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s● shutting down...%s\n", ColorYellow, ColorReset)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigChan:
			return nil
		case <-quit:
			return nil
		case c := <-reloads:
			next, _ := c.StreamConfig()
			fmt.Fprintf(out, "\r\033[K  %s↻ %s changed, restarting stream%s\n", ColorYellow, opts.Loader.Path(), ColorReset)
			sessionLog.LogEvent("config reloaded from " + opts.Loader.Path())
			active, err := restartStream(ctx, srv, sc, next)
			startedAt = time.Now()
			if err != nil {
				if !srv.Running() {
					fmt.Fprintf(out, "  %s✗ restart failed, streaming is stopped: %v%s\n", ColorRed, err, ColorReset)
					sessionLog.LogEvent("streaming stopped: " + err.Error())
					continue
				}
				fmt.Fprintf(out, "  %s✗ restart failed, kept previous settings: %v%s\n", ColorRed, err, ColorReset)
			}
			sc = active
			RenderPanel(out, panel(sc))
		case <-winch:
			fmt.Fprint(out, "\033[2J\033[H")
			PrintBanner(out)
			RenderPanel(out, panel(sc))
		case <-ticker.C:
			RenderStatus(out, srv.Stats(), time.Since(startedAt))
		}
	}
}

func loadValid(l *config.Loader, override func(*config.Config)) (*config.Config, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}
	override(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// streamStarter is the part of *server.Server a reload needs.
type streamStarter interface {
	Start(ctx context.Context, sc types.StreamConfig) (string, error)
}

// restartStream starts srv with next. When that fails it restarts with prev
// so a bad edit does not leave viewers without a stream, and returns the
// settings now in effect together with the error for next.
func restartStream(ctx context.Context, srv streamStarter, prev, next types.StreamConfig) (types.StreamConfig, error) {
	_, err := srv.Start(ctx, next)
	if err == nil {
		return next, nil
	}
	if _, perr := srv.Start(ctx, prev); perr != nil {
		return prev, fmt.Errorf("%w (previous settings: %v)", err, perr)
	}
	return prev, err
}

func newSource(sc types.StreamConfig) (capture.Source, error) {
	if sc.TestPattern {
		size, err := sc.Resolution.Size(image.Pt(1280, 720))
		if err != nil {
			return nil, err
		}
		return capture.NewPatternSource(size, sc.JPEGQuality), nil
	}
	return capture.NewScreenSource(capture.ScreenOptions{
		Display:       sc.Display,
		Resolution:    sc.Resolution,
		DisplayCursor: sc.DisplayCursor,
		Quality:       sc.JPEGQuality,
	})
}

func displaySize(display int) image.Point {
	displays := capture.Displays()
	if display < 0 || display >= len(displays) {
		return image.Point{}
	}
	return displays[display].Size()
}

// readCommands closes quit when the user types q. End of input is ignored
// so the stream keeps running without a terminal.
func readCommands(in *bufio.Reader, quit chan struct{}) {
	for {
		line, err := in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "q", "quit", "exit":
			close(quit)
			return
		}
		if err != nil {
			return
		}
	}
}
