package constants

import "time"

const (
	AppName = "deskstream"
	Version = "1.2.0"
)

// Network defaults
const (
	DefaultBindAddress = "127.0.0.1"
	DefaultPort        = 8080
	MinPort            = 0
	MaxPort            = 65535
	MaxRequestLine     = 8192
	ReadRequestTimeout = 10 * time.Second
	SendTimeout        = 10 * time.Second
	ShutdownTimeout    = 5 * time.Second
	AcceptBackoffMin   = 5 * time.Millisecond
	AcceptBackoffMax   = time.Second
)

// Stream defaults
const (
	DefaultFPS         = 30.0
	DefaultJPEGQuality = 75
	DefaultResolution  = "current"
	DefaultDisplay     = 0
	FrameCacheTTL      = 5 * time.Millisecond
	Boundary           = "deskstream-boundary"
	AuthQueryKey       = "auth="
	CredentialBytes    = 32
)

// Connection guards
const (
	DefaultMaxClients   = 10
	MaxConnectionsPerIP = 4
	MaxAuthAttempts     = 5
	BlockDuration       = 15 * time.Minute
	GuardCleanup        = 5 * time.Minute
)

// Logging
const (
	MaxAuditLogsPerMinute = 120
	MinDiskSpaceRequired  = 50 * 1024 * 1024
	FingerprintSize       = 8
)

// Event fan-out
const (
	EventBufferSize      = 256
	DefaultRedisChannel  = "deskstream:events"
	RedisPublishTimeout  = 2 * time.Second
	DashboardMaxEvents   = 200
	DashboardWSBuffer    = 4096
	DashboardWriteWait   = 5 * time.Second
	DashboardShutdown    = 3 * time.Second
	ConfigReloadDebounce = 300 * time.Millisecond
)

// Console
const (
	StatusInterval  = time.Second
	TimeFormatShort = "15:04:05"
	DefaultEnvFile  = ".env"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorPurple = "\033[35m"
)

// Messages
const (
	MsgUnauthorized    = "Invalid authentication key"
	MsgTooManyAttempts = "Too many failed attempts"
	MsgServerFull      = "Too many viewers"
)
