// Package config provides configuration management for eva-presence.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Feed       FeedConfig       `mapstructure:"feed"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Turn       TurnConfig       `mapstructure:"turn"`
	Pacing     PacingConfig     `mapstructure:"pacing"`
	Render     RenderConfig     `mapstructure:"render"`
	Capability CapabilityConfig `mapstructure:"capability"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// FeedConfig configures the dialogue feed connection.
type FeedConfig struct {
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// AudioConfig configures amplitude metering.
type AudioConfig struct {
	SampleRate      int     `mapstructure:"sample_rate"`
	BitDepth        int     `mapstructure:"bit_depth"`
	SmoothingFrames int     `mapstructure:"smoothing_frames"`
	SpeechThreshold float64 `mapstructure:"speech_threshold"`
}

// TurnConfig configures the turn inference engine.
type TurnConfig struct {
	TRPWindowStart time.Duration `mapstructure:"trp_window_start"`
	TRPWindowEnd   time.Duration `mapstructure:"trp_window_end"`
	YieldHold      time.Duration `mapstructure:"yield_hold"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
}

// PacingConfig configures the animation pacing.
type PacingConfig struct {
	TargetFPS  int `mapstructure:"target_fps"`
	RefreshFPS int `mapstructure:"refresh_fps"`
}

// RenderConfig configures the renderer.
type RenderConfig struct {
	InitialTier string `mapstructure:"initial_tier"`
	ShowDiag    bool   `mapstructure:"show_diag"`
}

// CapabilityConfig configures the host load monitor.
type CapabilityConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	MediumCPU     float64       `mapstructure:"medium_cpu"`
	LowCPU        float64       `mapstructure:"low_cpu"`
	MemoryCeiling float64       `mapstructure:"memory_ceiling"`
	Stability     int           `mapstructure:"stability"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    string `mapstructure:"file"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			URL:            "http://localhost:8080",
			Timeout:        30 * time.Second,
			ReconnectDelay: 3 * time.Second,
		},
		Audio: AudioConfig{
			SampleRate:      16000,
			BitDepth:        16,
			SmoothingFrames: 5,
			SpeechThreshold: 0.1,
		},
		Turn: TurnConfig{
			TRPWindowStart: 400 * time.Millisecond,
			TRPWindowEnd:   1 * time.Second,
			YieldHold:      300 * time.Millisecond,
			StaleAfter:     3 * time.Second,
		},
		Pacing: PacingConfig{
			TargetFPS:  30,
			RefreshFPS: 60,
		},
		Render: RenderConfig{
			InitialTier: "medium",
			ShowDiag:    false,
		},
		Capability: CapabilityConfig{
			Interval:      2 * time.Second,
			MediumCPU:     60,
			LowCPU:        85,
			MemoryCeiling: 0.90,
			Stability:     3,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    "",
		},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := GetConfigDir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("EVAPRESENCE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// No config file yet, persist the defaults.
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Watch reloads the config whenever the file changes on disk and calls
// onChange with the fresh values.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg := DefaultConfig()
		if err := viper.Unmarshal(cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

// Save writes the configuration to file.
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("feed", cfg.Feed)
	viper.Set("audio", cfg.Audio)
	viper.Set("turn", cfg.Turn)
	viper.Set("pacing", cfg.Pacing)
	viper.Set("render", cfg.Render)
	viper.Set("capability", cfg.Capability)
	viper.Set("logging", cfg.Logging)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".evapresence"), nil
}
