package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Speech.Rate != 1.0 {
		t.Errorf("Speech.Rate = %v, want 1.0", cfg.Speech.Rate)
	}
	if cfg.Playback.SampleRate != 44100 {
		t.Errorf("Playback.SampleRate = %d, want 44100", cfg.Playback.SampleRate)
	}
	if cfg.Providers.Edge.Voice != "en-US-AriaNeural" {
		t.Errorf("Edge.Voice = %q", cfg.Providers.Edge.Voice)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narrator.json")
	data := `{
		"speech": {"rate": 1.5, "voice": "en-GB-SoniaNeural"},
		"providers": {"default": "edge"}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Speech.Rate != 1.5 {
		t.Errorf("Speech.Rate = %v, want 1.5", cfg.Speech.Rate)
	}
	if cfg.Speech.Voice != "en-GB-SoniaNeural" {
		t.Errorf("Speech.Voice = %q", cfg.Speech.Voice)
	}
	if cfg.Providers.Default != "edge" {
		t.Errorf("Providers.Default = %q, want edge", cfg.Providers.Default)
	}
	// Untouched sections keep their defaults.
	if cfg.Playback.FramesPerBuffer != 1024 {
		t.Errorf("Playback.FramesPerBuffer = %d, want 1024", cfg.Playback.FramesPerBuffer)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narrator.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnvOverridesKeys(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "sk-el-0123456789")
	t.Setenv("DASHSCOPE_API_KEY", "sk-ds-0123456789")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg := DefaultConfig()
	cfg.Providers.ElevenLabs.APIKey = "from-file"
	cfg.ApplyEnv()

	if cfg.Providers.ElevenLabs.APIKey != "sk-el-0123456789" {
		t.Errorf("ElevenLabs.APIKey = %q, env must win over file", cfg.Providers.ElevenLabs.APIKey)
	}
	if cfg.Providers.DashScope.APIKey != "sk-ds-0123456789" {
		t.Errorf("DashScope.APIKey = %q", cfg.Providers.DashScope.APIKey)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		ok     bool
	}{
		{"defaults", func(*AppConfig) {}, true},
		{"rate too high", func(c *AppConfig) { c.Speech.Rate = 3.0 }, false},
		{"rate too low", func(c *AppConfig) { c.Speech.Rate = 0.1 }, false},
		{"volume negative", func(c *AppConfig) { c.Speech.Volume = -0.2 }, false},
		{"zero sample rate", func(c *AppConfig) { c.Playback.SampleRate = 0 }, false},
		{"unknown default provider", func(c *AppConfig) { c.Providers.Default = "festival" }, false},
		{"edge default provider", func(c *AppConfig) { c.Providers.Default = "edge" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
