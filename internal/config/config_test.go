package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("VOICEDESK_SERVER_URL", "")
	t.Setenv("VOICEDESK_LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerURL != "ws://localhost:8000/ws" {
		t.Errorf("unexpected default server URL: %s", cfg.ServerURL)
	}
	if cfg.Audio.FrameSize != 4096 {
		t.Errorf("unexpected default frame size: %d", cfg.Audio.FrameSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("unexpected default log level: %s", cfg.LogLevel)
	}
	if cfg.Voice.SystemInstruction == "" {
		t.Error("expected a default system instruction")
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("APPDATA", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("VOICEDESK_SERVER_URL", "")
	t.Setenv("VOICEDESK_LOG_LEVEL", "")

	path := configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	payload := `{"server_url":"wss://voice.example.com/ws","voice":{"name":"Kore"}}`
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerURL != "wss://voice.example.com/ws" {
		t.Errorf("file value not applied: %s", cfg.ServerURL)
	}
	if cfg.Voice.Name != "Kore" {
		t.Errorf("file value not applied: %s", cfg.Voice.Name)
	}
	// untouched fields keep their defaults
	if cfg.Audio.FrameSize != 4096 {
		t.Errorf("default lost on overlay: %d", cfg.Audio.FrameSize)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("VOICEDESK_SERVER_URL", "wss://override.example.com/ws")
	t.Setenv("VOICEDESK_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerURL != "wss://override.example.com/ws" {
		t.Errorf("env override not applied: %s", cfg.ServerURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("env override not applied: %s", cfg.LogLevel)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "missing server url",
			cfg:  Config{Audio: AudioConfig{FrameSize: 4096}},
		},
		{
			name: "zero frame size",
			cfg:  Config{ServerURL: "ws://x/ws", Audio: AudioConfig{FrameSize: 0}},
		},
		{
			name: "negative frame size",
			cfg:  Config{ServerURL: "ws://x/ws", Audio: AudioConfig{FrameSize: -1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("APPDATA", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("VOICEDESK_SERVER_URL", "")
	t.Setenv("VOICEDESK_LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	cfg.Voice.Name = "Puck"
	cfg.Audio.FrameSize = 2048
	if err := cfg.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.Voice.Name != "Puck" || got.Audio.FrameSize != 2048 {
		t.Errorf("saved values not reloaded: %+v", got)
	}
}
