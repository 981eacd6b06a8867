package tts

import "testing"

func TestEdgeRate(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "+0%"},
		{1.25, "+25%"},
		{2.0, "+100%"},
		{0.5, "-50%"},
		{0.75, "-25%"},
		{9.0, "+100%"}, // clamped
	}
	for _, tc := range tests {
		if got := edgeRate(tc.rate); got != tc.want {
			t.Errorf("edgeRate(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}

func TestEdgeVolume(t *testing.T) {
	tests := []struct {
		volume float64
		want   string
	}{
		{1.0, "+0%"},
		{0.5, "-50%"},
		{0.25, "-75%"},
		{0, "-100%"},
		{2.0, "+0%"}, // clamped
	}
	for _, tc := range tests {
		if got := edgeVolume(tc.volume); got != tc.want {
			t.Errorf("edgeVolume(%v) = %q, want %q", tc.volume, got, tc.want)
		}
	}
}

func TestEdgePitch(t *testing.T) {
	tests := []struct {
		pitch float64
		want  string
	}{
		{1.0, "+0Hz"},
		{1.1, "+10Hz"},
		{2.0, "+100Hz"},
		{0.5, "-50Hz"},
		{0.9, "-10Hz"},
	}
	for _, tc := range tests {
		if got := edgePitch(tc.pitch); got != tc.want {
			t.Errorf("edgePitch(%v) = %q, want %q", tc.pitch, got, tc.want)
		}
	}
}

func TestEdgeNormalizeSettings(t *testing.T) {
	p := NewEdgeProvider("")

	got := p.NormalizeSettings(Settings{})
	if got.VoiceID != edgeDefaultVoice {
		t.Errorf("VoiceID = %q, want %q", got.VoiceID, edgeDefaultVoice)
	}
	if got.Rate != 0.5 {
		t.Errorf("Rate = %v, want clamped 0.5", got.Rate)
	}

	got = p.NormalizeSettings(Settings{VoiceID: "en-GB-SoniaNeural", Rate: 1.5, Pitch: 1.0, Volume: 0.8})
	if got.VoiceID != "en-GB-SoniaNeural" {
		t.Errorf("VoiceID = %q, explicit voice must be kept", got.VoiceID)
	}
	if got.Rate != 1.5 || got.Pitch != 1.0 || got.Volume != 0.8 {
		t.Errorf("in-range settings changed: %+v", got)
	}
}

func TestEdgeIsZeroConfig(t *testing.T) {
	p := NewEdgeProvider("")
	if !p.Available() {
		t.Error("Available() = false")
	}
	if !p.Configured() {
		t.Error("Configured() = false, baseline must need no credentials")
	}
}
