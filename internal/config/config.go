package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

const DefaultPath = "config/narrator.json"

type AppConfig struct {
	Logging   LoggingConfig   `json:"logging"`
	Providers ProvidersConfig `json:"providers"`
	Speech    SpeechConfig    `json:"speech"`
	Playback  PlaybackConfig  `json:"playback"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type ProvidersConfig struct {
	// Default is the provider id to prefer; empty means priority order.
	Default    string           `json:"default"`
	ElevenLabs ElevenLabsConfig `json:"elevenlabs"`
	DashScope  DashScopeConfig  `json:"dashscope"`
	Edge       EdgeConfig       `json:"edge"`
}

type ElevenLabsConfig struct {
	APIKey  string `json:"api_key"`
	ModelID string `json:"model_id"`
}

type DashScopeConfig struct {
	APIKey    string `json:"api_key"`
	Workspace string `json:"workspace"`
	Model     string `json:"model"`
}

type EdgeConfig struct {
	Voice string `json:"voice"`
}

type SpeechConfig struct {
	Voice  string  `json:"voice"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

type PlaybackConfig struct {
	SampleRate      int `json:"sample_rate"`
	FramesPerBuffer int `json:"frames_per_buffer"`
	TickIntervalMs  int `json:"tick_interval_ms"`
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Logging: LoggingConfig{},
		Providers: ProvidersConfig{
			ElevenLabs: ElevenLabsConfig{
				ModelID: "eleven_multilingual_v2",
			},
			DashScope: DashScopeConfig{
				Model: "cosyvoice-v3-flash",
			},
			Edge: EdgeConfig{
				Voice: "en-US-AriaNeural",
			},
		},
		Speech: SpeechConfig{
			Rate:   1.0,
			Pitch:  1.0,
			Volume: 1.0,
		},
		Playback: PlaybackConfig{
			SampleRate:      44100,
			FramesPerBuffer: 1024,
			TickIntervalMs:  100,
		},
	}
}

func Load(path string) (*AppConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func (c *AppConfig) ApplyEnv() {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
	if format := strings.TrimSpace(os.Getenv("LOG_FORMAT")); format != "" {
		c.Logging.Format = format
	}

	if key := strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")); key != "" {
		c.Providers.ElevenLabs.APIKey = key
	}
	if key := strings.TrimSpace(os.Getenv("DASHSCOPE_API_KEY")); key != "" {
		c.Providers.DashScope.APIKey = key
	}
}

func (c *AppConfig) Validate() error {
	if c.Playback.SampleRate <= 0 {
		return errors.New("playback.sample_rate must be positive")
	}
	if c.Playback.FramesPerBuffer <= 0 {
		return errors.New("playback.frames_per_buffer must be positive")
	}
	if c.Playback.TickIntervalMs <= 0 {
		return errors.New("playback.tick_interval_ms must be positive")
	}

	if c.Speech.Rate < 0.5 || c.Speech.Rate > 2.0 {
		return fmt.Errorf("speech.rate must be in [0.5, 2.0], got %v", c.Speech.Rate)
	}
	if c.Speech.Pitch < 0.5 || c.Speech.Pitch > 2.0 {
		return fmt.Errorf("speech.pitch must be in [0.5, 2.0], got %v", c.Speech.Pitch)
	}
	if c.Speech.Volume < 0 || c.Speech.Volume > 1 {
		return fmt.Errorf("speech.volume must be in [0, 1], got %v", c.Speech.Volume)
	}

	switch c.Providers.Default {
	case "", "elevenlabs", "dashscope", "edge":
	default:
		return fmt.Errorf("unknown providers.default: %s", c.Providers.Default)
	}

	return nil
}
