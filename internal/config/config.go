// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// JobRetention is applied as a TTL on every job-record write; terminal
	// records expire on their own after this window.
	JobRetention time.Duration `yaml:"job_retention"`
}

type LimitsConfig struct {
	MaxVideosPerRequest int `yaml:"max_videos_per_request"`
	RatePerMinute       int `yaml:"rate_per_minute"`
}

type VideoConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	FrameRate   int    `yaml:"frame_rate"`
	Preset      string `yaml:"preset"`
	CRF         int    `yaml:"crf"`
	FontBold    string `yaml:"font_bold"`
	FontRegular string `yaml:"font_regular"`
}

type PipelineConfig struct {
	Workers          int           `yaml:"workers"`
	QueueSize        int           `yaml:"queue_size"`
	FFmpegBinary     string        `yaml:"ffmpeg_binary"`
	DownloadTimeout  time.Duration `yaml:"download_timeout"`
	TransformTimeout time.Duration `yaml:"transform_timeout"`
	MergeTimeout     time.Duration `yaml:"merge_timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
	// RetryTransform opts the transform stage into the same retry policy as
	// downloads. Off by default: transform failures are rarely transient.
	RetryTransform bool `yaml:"retry_transform"`
}

type StorageConfig struct {
	OutputDir    string        `yaml:"output_dir"`
	TempDir      string        `yaml:"temp_dir"`
	OutputMaxAge time.Duration `yaml:"output_max_age"`
	SweepEvery   time.Duration `yaml:"sweep_every"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Redis    RedisConfig    `yaml:"redis"`
	Limits   LimitsConfig   `yaml:"limits"`
	Video    VideoConfig    `yaml:"video"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Storage  StorageConfig  `yaml:"storage"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Pipeline.MaxRetries < 1 {
		return nil, errors.New("pipeline.max_retries must be at least 1")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.JobRetention <= 0 {
		cfg.Redis.JobRetention = 24 * time.Hour
	}
	if cfg.Limits.MaxVideosPerRequest <= 0 {
		cfg.Limits.MaxVideosPerRequest = 10
	}
	if cfg.Limits.RatePerMinute <= 0 {
		cfg.Limits.RatePerMinute = 10
	}
	if cfg.Video.Width <= 0 {
		cfg.Video.Width = 1080
	}
	if cfg.Video.Height <= 0 {
		cfg.Video.Height = 1920
	}
	if cfg.Video.FrameRate <= 0 {
		cfg.Video.FrameRate = 30
	}
	if cfg.Video.Preset == "" {
		cfg.Video.Preset = "veryfast"
	}
	if cfg.Video.CRF <= 0 {
		cfg.Video.CRF = 28
	}
	if cfg.Video.FontBold == "" {
		cfg.Video.FontBold = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
	}
	if cfg.Video.FontRegular == "" {
		cfg.Video.FontRegular = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 2
	}
	if cfg.Pipeline.QueueSize <= 0 {
		cfg.Pipeline.QueueSize = cfg.Pipeline.Workers * 4
	}
	if cfg.Pipeline.FFmpegBinary == "" {
		cfg.Pipeline.FFmpegBinary = "ffmpeg"
	}
	if cfg.Pipeline.DownloadTimeout <= 0 {
		cfg.Pipeline.DownloadTimeout = 5 * time.Minute
	}
	if cfg.Pipeline.TransformTimeout <= 0 {
		cfg.Pipeline.TransformTimeout = 10 * time.Minute
	}
	if cfg.Pipeline.MergeTimeout <= 0 {
		cfg.Pipeline.MergeTimeout = 5 * time.Minute
	}
	if cfg.Pipeline.MaxRetries == 0 {
		cfg.Pipeline.MaxRetries = 3
	}
	if cfg.Pipeline.RetryBaseDelay <= 0 {
		cfg.Pipeline.RetryBaseDelay = time.Second
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = "output"
	}
	if cfg.Storage.TempDir == "" {
		cfg.Storage.TempDir = "temp"
	}
	if cfg.Storage.OutputMaxAge <= 0 {
		cfg.Storage.OutputMaxAge = 24 * time.Hour
	}
	if cfg.Storage.SweepEvery <= 0 {
		cfg.Storage.SweepEvery = time.Hour
	}
}
