package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"deskstream/internal/config"
	"deskstream/internal/console"
	"deskstream/internal/constants"
	"deskstream/internal/utils"
)

var (
	envFile        string
	bindAddress    string
	port           int
	resolution     string
	fps            float64
	cursor         bool
	quality        int
	display        int
	maxClients     int
	maxConnPerIP   int
	authAttempts   int
	sendTimeout    time.Duration
	dashboardPort  int
	logDir         string
	testPattern    bool
	pickResolution bool
	noQR           bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start streaming (default command)",
	Long: `Start streaming the desktop and print the share URL.

Example:
  deskstream serve --port 9000 --resolution 1080p --fps 15
  deskstream serve --pick-resolution
  deskstream serve --test-pattern --dashboard-port 4040`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addStreamFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func addStreamFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&envFile, "env-file", utils.GetEnv("DESKSTREAM_ENV_FILE", constants.DefaultEnvFile), "Path of the .env file to load and watch")
	f.StringVar(&bindAddress, "bind", constants.DefaultBindAddress, "Address to listen on (0.0.0.0 for all interfaces)")
	f.IntVarP(&port, "port", "p", constants.DefaultPort, "TCP port to listen on (0 picks a free port)")
	f.StringVarP(&resolution, "resolution", "r", constants.DefaultResolution, "Output resolution: current, qhd, fhd, hd")
	f.Float64Var(&fps, "fps", constants.DefaultFPS, "Frames per second")
	f.BoolVar(&cursor, "cursor", true, "Draw the mouse pointer")
	f.IntVar(&quality, "quality", constants.DefaultJPEGQuality, "JPEG quality (1-100)")
	f.IntVar(&display, "display", constants.DefaultDisplay, "Index of the display to capture")
	f.IntVar(&maxClients, "max-clients", constants.DefaultMaxClients, "Maximum concurrent viewers (0 = unlimited)")
	f.IntVar(&maxConnPerIP, "max-conn-per-ip", constants.MaxConnectionsPerIP, "Maximum concurrent connections from one IP (0 = unlimited)")
	f.IntVar(&authAttempts, "max-auth-attempts", constants.MaxAuthAttempts, "Failed keys before an IP is locked out (0 = never)")
	f.DurationVar(&sendTimeout, "send-timeout", constants.SendTimeout, "Drop a viewer whose frame write stalls this long")
	f.IntVar(&dashboardPort, "dashboard-port", 0, "Serve a status dashboard on 127.0.0.1:<port> (0 = off)")
	f.StringVar(&logDir, "log-dir", "", "Directory for session and audit logs")
	f.BoolVar(&testPattern, "test-pattern", false, "Stream a generated test card instead of the screen")
	f.BoolVar(&pickResolution, "pick-resolution", false, "Choose the resolution interactively")
	f.BoolVar(&noQR, "no-qr", false, "Do not print the share URL as a QR code")
}

// applyFlags copies every flag set on the command line over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("bind") {
		cfg.BindAddress = bindAddress
	}
	if f.Changed("port") {
		cfg.Port = port
	}
	if f.Changed("resolution") {
		cfg.Resolution = resolution
	}
	if f.Changed("fps") {
		cfg.FPS = fps
	}
	if f.Changed("cursor") {
		cfg.DisplayCursor = cursor
	}
	if f.Changed("quality") {
		cfg.JPEGQuality = quality
	}
	if f.Changed("display") {
		cfg.Display = display
	}
	if f.Changed("max-clients") {
		cfg.MaxClients = maxClients
	}
	if f.Changed("max-conn-per-ip") {
		cfg.MaxConnPerIP = maxConnPerIP
	}
	if f.Changed("max-auth-attempts") {
		cfg.MaxAuthAttempts = authAttempts
	}
	if f.Changed("send-timeout") {
		cfg.SendTimeout = sendTimeout
	}
	if f.Changed("dashboard-port") {
		cfg.DashboardPort = dashboardPort
	}
	if f.Changed("log-dir") {
		cfg.LogDir = logDir
	}
	if f.Changed("test-pattern") {
		cfg.TestPattern = testPattern
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return console.Run(ctx, console.Options{
		Loader:         config.NewLoader(envFile),
		Override:       func(cfg *config.Config) { applyFlags(cmd, cfg) },
		PickResolution: pickResolution,
		ShowQR:         !noQR,
		In:             cmd.InOrStdin(),
		Out:            cmd.OutOrStdout(),
	})
}
