package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsMaxChunkLen  = 5000
	elevenLabsDefaultVoice = "21m00Tcm4TlvDq8ikWAM"
	elevenLabsDefaultModel = "eleven_multilingual_v2"

	// The provider's documented speed domain.
	elevenLabsMinSpeed = 0.7
	elevenLabsMaxSpeed = 1.2
)

// ElevenLabsProvider synthesizes chunks through the ElevenLabs HTTP API,
// returning MP3 bytes. The highest-quality backend in the priority order.
type ElevenLabsProvider struct {
	apiKey     string
	baseURL    string
	modelID    string
	httpClient *http.Client
}

// NewElevenLabsProvider builds the provider; an empty modelID selects the
// default model.
func NewElevenLabsProvider(apiKey, modelID string) *ElevenLabsProvider {
	if modelID == "" {
		modelID = elevenLabsDefaultModel
	}
	return &ElevenLabsProvider{
		apiKey:     apiKey,
		baseURL:    elevenLabsBaseURL,
		modelID:    modelID,
		httpClient: &http.Client{},
	}
}

func (p *ElevenLabsProvider) ID() string { return "elevenlabs" }

func (p *ElevenLabsProvider) MaxChunkLen() int { return elevenLabsMaxChunkLen }

func (p *ElevenLabsProvider) Available() bool { return true }

func (p *ElevenLabsProvider) Configured() bool { return plausibleKey(p.apiKey) }

func (p *ElevenLabsProvider) NormalizeSettings(settings Settings) Settings {
	settings.Rate = clamp(settings.Rate, 0.5, 2.0)
	settings.Pitch = 1.0 // no native pitch control
	settings.Volume = clamp(settings.Volume, 0, 1)
	settings.Format = "mp3"
	if settings.VoiceID == "" {
		settings.VoiceID = elevenLabsDefaultVoice
	}
	return settings
}

// elevenLabsSpeed maps the normalized rate domain [0.5, 2.0] linearly into
// the provider's [0.7, 1.2] speed domain. Pure so the mapping is testable.
func elevenLabsSpeed(rate float64) float64 {
	rate = clamp(rate, 0.5, 2.0)
	return elevenLabsMinSpeed + (rate-0.5)/1.5*(elevenLabsMaxSpeed-elevenLabsMinSpeed)
}

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings elevenLabsVoiceSetting `json:"voice_settings"`
}

type elevenLabsVoiceSetting struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, settings Settings) ([]byte, error) {
	payload := elevenLabsRequest{
		Text:    text,
		ModelID: p.modelID,
		VoiceSettings: elevenLabsVoiceSetting{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           elevenLabsSpeed(settings.Rate),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", p.baseURL, settings.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return io.ReadAll(resp.Body)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d: %s", ErrAuth, resp.StatusCode, readErrorBody(resp.Body))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: status %d: %s", ErrBadRequest, resp.StatusCode, readErrorBody(resp.Body))
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrTransient, resp.StatusCode, readErrorBody(resp.Body))
	}
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return string(data)
}
