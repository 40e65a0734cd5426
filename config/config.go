package config

import (
	"errors"
)

// Config is the runtime configuration shared by every decoder built from a
// facade.  All fields have safe defaults so callers can start with Default()
// and override only what they need.
type Config struct {
	// Staging read size; each pull from a byte source reads at most this many
	// bytes.  default 32 KiB
	ChunkSize int `mapstructure:"chunk_size"`

	// Reads beyond this many bytes behave as end-of-input.  0 = no limit.
	MaxSourceBytes int64 `mapstructure:"max_source_bytes"`

	// Decoders run concurrently by batch decodes.  0 = runtime.NumCPU()
	WorkerCount int `mapstructure:"worker_count"`

	// Logging.
	Log LogConfig `mapstructure:"log"`

	// Defaults used by the command line tool.
	Image ImageFile `mapstructure:"image"`
	JSON  JSONFile  `mapstructure:"json"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`
	// Rotation applies to file outputs.
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options.
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		ChunkSize: 32 * 1024,
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Filename:   "logs/decodekit.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Image: ImageFile{
			PixelFormat:     "bgra_premul",
			PixelBlend:      "src",
			BackgroundColor: 1,
		},
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.MaxSourceBytes < 0 {
		return errors.New("config: MaxSourceBytes must not be negative")
	}
	if c.WorkerCount < 0 {
		return errors.New("config: WorkerCount must not be negative")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return errors.New("config: Log.Format must be console or json")
	}
	return nil
}
