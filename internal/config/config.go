// Package config loads deskstream settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"deskstream/internal/events"
	"deskstream/internal/security"
	"deskstream/internal/types"
)

var ErrInvalidQuality = errors.New("jpeg quality must be between 1 and 100")

type Config struct {
	BindAddress     string        `env:"DESKSTREAM_BIND,default=127.0.0.1"`
	Port            int           `env:"DESKSTREAM_PORT,default=8080,strict"`
	Resolution      string        `env:"DESKSTREAM_RESOLUTION,default=current"`
	FPS             float64       `env:"DESKSTREAM_FPS,default=30,strict"`
	DisplayCursor   bool          `env:"DESKSTREAM_CURSOR,default=true,strict"`
	JPEGQuality     int           `env:"DESKSTREAM_JPEG_QUALITY,default=75,strict"`
	Display         int           `env:"DESKSTREAM_DISPLAY,default=0,strict"`
	TestPattern     bool          `env:"DESKSTREAM_TEST_PATTERN,default=false,strict"`
	MaxClients      int           `env:"DESKSTREAM_MAX_CLIENTS,default=10,strict"`
	MaxConnPerIP    int           `env:"DESKSTREAM_MAX_CONN_PER_IP,default=4,strict"`
	MaxAuthAttempts int           `env:"DESKSTREAM_MAX_AUTH_ATTEMPTS,default=5,strict"`
	SendTimeout     time.Duration `env:"DESKSTREAM_SEND_TIMEOUT,default=10s,strict"`
	ShutdownTimeout time.Duration `env:"DESKSTREAM_SHUTDOWN_TIMEOUT,default=5s,strict"`
	DashboardPort   int           `env:"DESKSTREAM_DASHBOARD_PORT,default=0,strict"`
	LogDir          string        `env:"DESKSTREAM_LOG_DIR"`

	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     string `env:"REDIS_PORT,default=6379"`
	RedisUsername string `env:"REDIS_USERNAME"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisChannel  string `env:"DESKSTREAM_REDIS_CHANNEL,default=deskstream:events"`
}

// Validate reports the first setting that would make Start fail.
func (c *Config) Validate() error {
	_, err := c.StreamConfig()
	if err != nil {
		return err
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidQuality, c.JPEGQuality)
	}
	if err := security.ValidatePort(c.DashboardPort); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func (c *Config) StreamConfig() (types.StreamConfig, error) {
	res, err := types.ParseResolution(c.Resolution)
	if err != nil {
		return types.StreamConfig{}, err
	}
	fr, err := types.NewFrameRate(c.FPS)
	if err != nil {
		return types.StreamConfig{}, err
	}
	if err := security.ValidatePort(c.Port); err != nil {
		return types.StreamConfig{}, err
	}
	if err := security.ValidateBindAddress(c.BindAddress); err != nil {
		return types.StreamConfig{}, err
	}
	return types.StreamConfig{
		BindAddress:   c.BindAddress,
		Port:          c.Port,
		Resolution:    res,
		FrameRate:     fr,
		DisplayCursor: c.DisplayCursor,
		JPEGQuality:   c.JPEGQuality,
		Display:       c.Display,
		TestPattern:   c.TestPattern,
	}, nil
}

func (c *Config) Redis() events.RedisConfig {
	return events.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Username: c.RedisUsername,
		Password: c.RedisPassword,
		Channel:  c.RedisChannel,
	}
}

// DashboardAddr is the loopback address of the status dashboard, or "" when
// it is disabled.
func (c *Config) DashboardAddr() string {
	if c.DashboardPort == 0 {
		return ""
	}
	return "127.0.0.1:" + strconv.Itoa(c.DashboardPort)
}

// Loader reads the environment, layering an optional .env file underneath
// it. Variables already present in the process environment win over the
// file; values that came from the file are refreshed on every Load.
type Loader struct {
	path string

	mu       sync.Mutex
	fromFile map[string]bool
}

func NewLoader(envFile string) *Loader {
	return &Loader{path: envFile, fromFile: make(map[string]bool)}
}

func (l *Loader) Path() string { return l.path }

func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.applyEnvFile(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	return &cfg, nil
}

func (l *Loader) applyEnvFile() error {
	if l.path == "" {
		return nil
	}

	values, err := godotenv.Read(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", l.path, err)
		}
		values = nil
	}

	for key := range l.fromFile {
		if _, ok := values[key]; !ok {
			os.Unsetenv(key)
			delete(l.fromFile, key)
		}
	}
	for key, value := range values {
		if _, set := os.LookupEnv(key); set && !l.fromFile[key] {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
		l.fromFile[key] = true
	}
	return nil
}
