package tts

import (
	"errors"
	"testing"
)

func TestDashScopeVolume(t *testing.T) {
	tests := []struct {
		volume float64
		want   int
	}{
		{1.0, 100},
		{0.5, 50},
		{0.255, 26},
		{0, 0},
		{-1, 0},  // clamped
		{3, 100}, // clamped
	}
	for _, tc := range tests {
		if got := dashScopeVolume(tc.volume); got != tc.want {
			t.Errorf("dashScopeVolume(%v) = %d, want %d", tc.volume, got, tc.want)
		}
	}
}

func TestDashScopeNormalizeSettings(t *testing.T) {
	p := NewDashScopeProvider("sk-abcdef0123456789", "", "")

	got := p.NormalizeSettings(Settings{Rate: 0.1, Pitch: 3.0, Volume: 0.5})
	if got.Rate != 0.5 {
		t.Errorf("Rate = %v, want clamped 0.5", got.Rate)
	}
	if got.Pitch != 2.0 {
		t.Errorf("Pitch = %v, want clamped 2.0", got.Pitch)
	}
	if got.VoiceID != dashScopeDefaultVoice {
		t.Errorf("VoiceID = %q, want default", got.VoiceID)
	}
	if got.SampleRate == 0 {
		t.Error("SampleRate not defaulted")
	}
}

func TestMapDashScopeError(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
		want    error
	}{
		{"auth", "InvalidApiKey", "unauthorized access", ErrAuth},
		{"authentication", "Authentication.Failed", "bad credentials", ErrAuth},
		{"bad parameter", "InvalidParameter", "voice not found", ErrBadRequest},
		{"timeout", "RequestTimeOut", "request timeout", ErrTransient},
		{"temporary", "SystemError", "temporarily unavailable", ErrTransient},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := mapDashScopeError(tc.code, tc.message)
			if !errors.Is(err, tc.want) {
				t.Errorf("mapDashScopeError(%q, %q) = %v, want %v", tc.code, tc.message, err, tc.want)
			}
		})
	}

	// Unclassified failures stay plain errors and are not retried.
	err := mapDashScopeError("SomethingElse", "unknown failure")
	if Retryable(err) {
		t.Error("unclassified dashscope error must not be retryable")
	}
}
