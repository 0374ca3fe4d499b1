// Package config loads and persists client settings from a JSON file at
// the platform config path, with environment overrides for deployment
// knobs.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerURL string      `json:"server_url"`
	Voice     VoiceConfig `json:"voice"`
	Audio     AudioConfig `json:"audio"`
	LogLevel  string      `json:"log_level"`
}

type VoiceConfig struct {
	Name              string `json:"name"` // e.g. "Kore"
	SystemInstruction string `json:"system_instruction"`
	AffectiveDialog   bool   `json:"affective_dialog"`
	ProactiveAudio    bool   `json:"proactive_audio"`
}

type AudioConfig struct {
	InputDeviceID string `json:"input_device_id"` // empty = system default
	FrameSize     int    `json:"frame_size"`      // samples per capture frame
}

// Load reads the config from disk, overlays it on defaults, and applies
// environment overrides. A missing config file is not an error.
func Load() (*Config, error) {
	// a .env next to the binary can set the overrides below
	godotenv.Load()

	cfg := &Config{
		ServerURL: "ws://localhost:8000/ws",
		Voice: VoiceConfig{
			SystemInstruction: "You are a helpful and friendly AI assistant.",
		},
		Audio: AudioConfig{
			FrameSize: 4096,
		},
		LogLevel: "info",
	}

	path := configPath()
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if url := os.Getenv("VOICEDESK_SERVER_URL"); url != "" {
		cfg.ServerURL = url
	}
	if level := os.Getenv("VOICEDESK_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would break the audio pipeline.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("config: server_url must be set")
	}
	if c.Audio.FrameSize <= 0 {
		return fmt.Errorf("config: audio.frame_size must be positive (got %d)", c.Audio.FrameSize)
	}
	return nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	path := configPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the platform-specific config file path.
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "voicedesk", "config.json")
}
