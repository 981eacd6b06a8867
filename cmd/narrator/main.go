package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/lectorlabs/narrator/internal/audio"
	"github.com/lectorlabs/narrator/internal/config"
	"github.com/lectorlabs/narrator/internal/logging"
	"github.com/lectorlabs/narrator/internal/session"
	"github.com/lectorlabs/narrator/internal/tts"
	"github.com/lectorlabs/narrator/pkg/markdown"
)

func main() {
	inputText := flag.String("text", "", "Text to read aloud")
	inputFile := flag.String("file", "", "Document to read aloud (.md files are stripped of markup)")
	configPath := flag.String("config", "", "Config file path")
	providerID := flag.String("provider", "", "Synthesis provider (elevenlabs/dashscope/edge)")
	voice := flag.String("voice", "", "Voice id")
	rate := flag.Float64("rate", 0, "Speech rate multiplier (0.5-2.0)")
	pitch := flag.Float64("pitch", 0, "Pitch multiplier (0.5-2.0)")
	volume := flag.Float64("volume", -1, "Volume (0-1)")
	listProviders := flag.Bool("list-providers", false, "List providers and exit")
	showWords := flag.Bool("words", false, "Print estimated word boundaries while reading")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()
	logging.SetTraceID(logging.NewTraceID())

	registry, err := buildRegistry(cfg)
	if err != nil {
		logging.Fatalf("provider registry: %v", err)
	}
	if *listProviders {
		for _, d := range registry.List() {
			marker := " "
			if d.ID == registry.Active().ID() {
				marker = "*"
			}
			fmt.Printf("%s %-12s available=%-5v configured=%v\n", marker, d.ID, d.Available, d.Configured)
		}
		return
	}
	if *providerID != "" {
		if err := registry.Select(*providerID); err != nil {
			logging.Fatalf("select provider: %v", err)
		}
	}

	input, err := readInput(*inputText, *inputFile)
	if err != nil {
		logging.Fatalf("%v", err)
	}

	player := audio.NewPlayer(audio.NewPortAudioDevice(), &audio.PlayerConfig{
		FramesPerBuffer:  cfg.Playback.FramesPerBuffer,
		TickInterval:     time.Duration(cfg.Playback.TickIntervalMs) * time.Millisecond,
		OutputSampleRate: cfg.Playback.SampleRate,
	})

	engine := session.NewEngine(registry, player, nil, &session.EngineConfig{
		Settings: speechSettings(cfg, *voice, *rate, *pitch, *volume),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	done := make(chan struct{})
	opts := []session.SpeakOption{
		session.WithOnComplete(func() { close(done) }),
		session.WithOnError(func(err error) {
			logging.Errorf("narration failed: %v", err)
			close(done)
		}),
	}
	if *showWords {
		opts = append(opts, session.WithOnWord(func(b session.WordBoundary) {
			fmt.Printf("[%6.2fs] chunk %d word %d: %s\n",
				b.Elapsed.Seconds(), b.ChunkIndex, b.WordIndex, b.Word)
		}))
	}

	if err := engine.Speak(ctx, input, opts...); err != nil {
		logging.Fatalf("speak: %v", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		logging.Infof("interrupted, stopping narration")
		engine.Stop()
	}
}

func buildRegistry(cfg *config.AppConfig) (*tts.Registry, error) {
	registry, err := tts.NewRegistry(
		tts.NewElevenLabsProvider(cfg.Providers.ElevenLabs.APIKey, cfg.Providers.ElevenLabs.ModelID),
		tts.NewDashScopeProvider(cfg.Providers.DashScope.APIKey, cfg.Providers.DashScope.Workspace, cfg.Providers.DashScope.Model),
		tts.NewEdgeProvider(cfg.Providers.Edge.Voice),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Providers.Default != "" {
		if err := registry.Select(cfg.Providers.Default); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func readInput(text, file string) (string, error) {
	switch {
	case text != "" && file != "":
		return "", fmt.Errorf("use -text or -file, not both")
	case text != "":
		return text, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		content := string(data)
		ext := strings.ToLower(filepath.Ext(file))
		if ext == ".md" || ext == ".markdown" {
			content = markdown.Filter(content)
		}
		return content, nil
	default:
		return "", fmt.Errorf("nothing to read: pass -text or -file")
	}
}

func speechSettings(cfg *config.AppConfig, voice string, rate, pitch, volume float64) tts.Settings {
	settings := tts.DefaultSettings()
	if cfg.Speech.Voice != "" {
		settings.VoiceID = cfg.Speech.Voice
	}
	if cfg.Speech.Rate > 0 {
		settings.Rate = cfg.Speech.Rate
	}
	if cfg.Speech.Pitch > 0 {
		settings.Pitch = cfg.Speech.Pitch
	}
	if cfg.Speech.Volume >= 0 {
		settings.Volume = cfg.Speech.Volume
	}

	// Flags win over config.
	if voice != "" {
		settings.VoiceID = voice
	}
	if rate > 0 {
		settings.Rate = rate
	}
	if pitch > 0 {
		settings.Pitch = pitch
	}
	if volume >= 0 {
		settings.Volume = volume
	}
	return settings
}
