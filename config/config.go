// Package config loads chordscribe settings from an optional YAML file,
// CHORDSCRIBE_* environment variables and a .env file, in increasing order
// of precedence for the last two over the first.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/jsphweid/chordscribe/constants"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const EnvPrefix = "CHORDSCRIBE"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
	UploadDir       string        `mapstructure:"upload_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AnalysisConfig struct {
	SampleRate  int     `mapstructure:"sample_rate"`
	HopLength   int     `mapstructure:"hop_length"`
	FrameSize   int     `mapstructure:"frame_size"`
	Threshold   float64 `mapstructure:"threshold"`
	CatalogPath string  `mapstructure:"catalog_path"`
	FFmpegPath  string  `mapstructure:"ffmpeg_path"`
	Concurrency int     `mapstructure:"concurrency"`
}

// MaxUploadBytes is the request body limit for uploads.
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", constants.DefaultPort)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", constants.DefaultMaxUploadMB)
	v.SetDefault("server.upload_dir", "uploads")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("analysis.sample_rate", constants.DefaultSampleRate)
	v.SetDefault("analysis.hop_length", constants.DefaultHopLength)
	v.SetDefault("analysis.frame_size", constants.DefaultFrameSize)
	v.SetDefault("analysis.threshold", constants.DefaultThreshold)
	v.SetDefault("analysis.catalog_path", "")
	v.SetDefault("analysis.ffmpeg_path", "ffmpeg")
	v.SetDefault("analysis.concurrency", 4)
}

// Load reads path (may be empty) and the environment. A missing .env file
// is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)), func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Port) == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be > 0, got %d", c.Server.MaxUploadMB))
	}
	if c.Server.UploadDir == "" {
		errs = append(errs, errors.New("server.upload_dir is required"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be >= 0"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	a := c.Analysis
	if a.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("analysis.sample_rate must be > 0, got %d", a.SampleRate))
	}
	if a.HopLength <= 0 {
		errs = append(errs, fmt.Errorf("analysis.hop_length must be > 0, got %d", a.HopLength))
	}
	if a.FrameSize <= 0 {
		errs = append(errs, fmt.Errorf("analysis.frame_size must be > 0, got %d", a.FrameSize))
	}
	if a.Threshold < 0 || a.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("analysis.threshold must be in [0, 1), got %v", a.Threshold))
	}
	if a.FFmpegPath == "" {
		errs = append(errs, errors.New("analysis.ffmpeg_path is required"))
	}
	if a.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("analysis.concurrency must be >= 1, got %d", a.Concurrency))
	}
	return errors.Join(errs...)
}
