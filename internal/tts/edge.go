package tts

import (
	"context"
	"fmt"
	"math"

	"github.com/wujunwei928/edge-tts-go/edge_tts"
)

const (
	edgeDefaultVoice = "en-US-AriaNeural"
	edgeMaxChunkLen  = 4000
)

// EdgeProvider is the zero-configuration baseline: Microsoft Edge's free
// synthesis endpoint, no credentials required. Narration degrades to this
// provider rather than disappearing when nothing richer is configured.
type EdgeProvider struct {
	defaultVoice string
}

// NewEdgeProvider builds the baseline provider; an empty voice selects the
// default neural voice.
func NewEdgeProvider(voice string) *EdgeProvider {
	if voice == "" {
		voice = edgeDefaultVoice
	}
	return &EdgeProvider{defaultVoice: voice}
}

func (p *EdgeProvider) ID() string { return "edge" }

func (p *EdgeProvider) MaxChunkLen() int { return edgeMaxChunkLen }

func (p *EdgeProvider) Available() bool { return true }

// Configured is always true: the baseline needs no credentials.
func (p *EdgeProvider) Configured() bool { return true }

func (p *EdgeProvider) NormalizeSettings(settings Settings) Settings {
	settings.Rate = clamp(settings.Rate, 0.5, 2.0)
	settings.Pitch = clamp(settings.Pitch, 0.5, 2.0)
	settings.Volume = clamp(settings.Volume, 0, 1)
	settings.Format = "mp3"
	if settings.VoiceID == "" {
		settings.VoiceID = p.defaultVoice
	}
	return settings
}

// The Edge endpoint takes prosody as signed percent/Hz offset strings.
// These mappings are pure so the settings translation is testable.

// edgeRate maps a rate multiplier to a signed percentage: 1.25 -> "+25%".
func edgeRate(rate float64) string {
	return signedPercent((clamp(rate, 0.5, 2.0) - 1.0) * 100)
}

// edgeVolume maps normalized volume [0, 1] to an attenuation percentage:
// 1.0 -> "+0%", 0.25 -> "-75%".
func edgeVolume(volume float64) string {
	return signedPercent((clamp(volume, 0, 1) - 1.0) * 100)
}

// edgePitch maps a pitch multiplier to a Hz offset: 1.1 -> "+10Hz".
func edgePitch(pitch float64) string {
	offset := int(math.Round((clamp(pitch, 0.5, 2.0) - 1.0) * 100))
	return fmt.Sprintf("%+dHz", offset)
}

func signedPercent(v float64) string {
	return fmt.Sprintf("%+d%%", int(math.Round(v)))
}

func (p *EdgeProvider) Synthesize(ctx context.Context, text string, settings Settings) ([]byte, error) {
	conn, err := edge_tts.NewCommunicate(
		text,
		edge_tts.SetVoice(settings.VoiceID),
		edge_tts.SetRate(edgeRate(settings.Rate)),
		edge_tts.SetVolume(edgeVolume(settings.Volume)),
		edge_tts.SetPitch(edgePitch(settings.Pitch)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	type result struct {
		data []byte
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		data, err := conn.Stream()
		resultCh <- result{data: data, err: err}
	}()

	select {
	case r := <-resultCh:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
