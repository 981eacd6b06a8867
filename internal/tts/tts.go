package tts

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Settings holds the normalized voice parameters shared by all providers.
// Rate and Pitch live in [0.5, 2.0] with 1.0 meaning unchanged; Volume lives
// in [0, 1]. Each provider maps these into its own native ranges before
// building a request.
type Settings struct {
	VoiceID      string
	Rate         float64
	Pitch        float64
	Volume       float64
	Format       string
	LanguageCode string
	SampleRate   int
}

func DefaultSettings() Settings {
	return Settings{
		Rate:         1.0,
		Pitch:        1.0,
		Volume:       1.0,
		Format:       "mp3",
		LanguageCode: "en-US",
	}
}

// Provider is one interchangeable remote synthesis backend. Implementations
// are a sealed set selected through the Registry; the session layer never
// inspects a concrete provider type.
type Provider interface {
	ID() string

	// Synthesize converts one chunk of text into encoded audio bytes.
	// The call must honor ctx cancellation.
	Synthesize(ctx context.Context, text string, settings Settings) ([]byte, error)

	// NormalizeSettings clamps settings into the provider's documented
	// numeric domain. Pure and deterministic.
	NormalizeSettings(settings Settings) Settings

	// MaxChunkLen is the provider's per-request character limit in runes.
	MaxChunkLen() int

	// Available reports whether the platform can run this provider at all.
	Available() bool

	// Configured reports whether required credentials are present and
	// syntactically plausible.
	Configured() bool
}

var (
	ErrTransient  = errors.New("tts transient error")
	ErrAuth       = errors.New("tts auth error")
	ErrBadRequest = errors.New("tts bad request")
	ErrEmptyAudio = errors.New("tts returned empty audio")
)

// SynthesisError is the terminal failure of one chunk synthesis after the
// retry budget is spent (or immediately, for non-retryable conditions).
type SynthesisError struct {
	ProviderID string
	Attempts   int
	Retryable  bool
	Err        error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed (provider=%s attempts=%d retryable=%v): %v",
		e.ProviderID, e.Attempts, e.Retryable, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Retryable classifies a provider error. Auth failures and bad requests are
// client-side and never retried; timeouts, transient provider errors and
// network failures are retried until the attempt budget is spent.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrBadRequest) || errors.Is(err, ErrEmptyAudio) {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// plausibleKey rejects empty and obvious placeholder credentials so a
// half-filled config file does not count as "configured".
func plausibleKey(key string) bool {
	key = strings.TrimSpace(key)
	if len(key) < 8 {
		return false
	}
	lower := strings.ToLower(key)
	for _, placeholder := range []string{"your-api-key", "your_api_key", "changeme", "placeholder", "xxxx", "<", "todo"} {
		if strings.Contains(lower, placeholder) {
			return false
		}
	}
	return true
}
