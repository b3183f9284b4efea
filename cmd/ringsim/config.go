package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/gogpu/gpuring"
	"github.com/gogpu/gpuring/backend"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix is the prefix of every environment variable read by ringsim.
const envPrefix = "RINGSIM"

// Config validation errors
var (
	ErrInvalidBackend    = errors.New("backend is not registered")
	ErrInvalidCapacity   = errors.New("capacity must be positive")
	ErrInvalidFrameSlots = errors.New("frame_slots must be positive")
	ErrInvalidAlignment  = errors.New("alignment must be a power of two")
	ErrInvalidFrames     = errors.New("frames must be positive")
	ErrInvalidAllocs     = errors.New("allocs_per_frame must be positive")
	ErrInvalidSizeRange  = errors.New("min_size and max_size must satisfy 0 < min_size <= max_size < capacity")
	ErrInvalidPolicy     = errors.New("mapping_policy must be 'persistent' or 'release-on-swap'")
	ErrInvalidLogLevel   = errors.New("log_level must be debug, info, warn, or error")
)

// Config holds the simulation parameters. Fields are read from RINGSIM_*
// environment variables, then overridden by command-line flags.
type Config struct {
	Backend        string `envconfig:"BACKEND" default:"host"`
	Capacity       uint64 `envconfig:"CAPACITY" default:"1048576"`
	FrameSlots     int    `envconfig:"FRAME_SLOTS" default:"3"`
	Alignment      uint64 `envconfig:"ALIGNMENT" default:"256"`
	Frames         int    `envconfig:"FRAMES" default:"600"`
	AllocsPerFrame int    `envconfig:"ALLOCS_PER_FRAME" default:"64"`
	MinSize        uint64 `envconfig:"MIN_SIZE" default:"256"`
	MaxSize        uint64 `envconfig:"MAX_SIZE" default:"4096"`
	Seed           uint64 `envconfig:"SEED" default:"1"`
	MappingPolicy  string `envconfig:"MAPPING_POLICY" default:"persistent"`
	MetricsAddr    string `envconfig:"METRICS_ADDR"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"warn"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Backend:        "host",
		Capacity:       1 << 20,
		FrameSlots:     3,
		Alignment:      256,
		Frames:         600,
		AllocsPerFrame: 64,
		MinSize:        256,
		MaxSize:        4096,
		Seed:           1,
		MappingPolicy:  "persistent",
		LogLevel:       "warn",
	}
}

// LoadConfig reads an optional dotenv file and the RINGSIM_* environment.
// An empty envFile loads ".env" when present; a named file must exist.
// Variables already set in the environment win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if !backend.IsRegistered(cfg.Backend) {
		return ErrInvalidBackend
	}
	if cfg.Capacity == 0 {
		return ErrInvalidCapacity
	}
	if cfg.FrameSlots <= 0 {
		return ErrInvalidFrameSlots
	}
	if cfg.Alignment == 0 || cfg.Alignment&(cfg.Alignment-1) != 0 {
		return ErrInvalidAlignment
	}
	if cfg.Frames <= 0 {
		return ErrInvalidFrames
	}
	if cfg.AllocsPerFrame <= 0 {
		return ErrInvalidAllocs
	}
	if cfg.MinSize == 0 || cfg.MinSize > cfg.MaxSize || cfg.MaxSize >= cfg.Capacity {
		return ErrInvalidSizeRange
	}
	if _, err := cfg.policy(); err != nil {
		return err
	}
	if _, err := cfg.level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) policy() (gpuring.MappingPolicy, error) {
	switch c.MappingPolicy {
	case "persistent":
		return gpuring.MappingPersistent, nil
	case "release-on-swap":
		return gpuring.MappingReleaseOnSwap, nil
	}
	return 0, ErrInvalidPolicy
}

func (c *Config) level() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, ErrInvalidLogLevel
}
