package audio

import "time"

// Clip is one fully decoded utterance: interleaved 16-bit PCM samples plus
// the format needed to play them back.
type Clip struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Frames is the number of per-channel sample frames in the clip.
func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// Resampled returns the clip converted to the target sample rate. The same
// clip is returned when no conversion is needed.
func (c *Clip) Resampled(targetRate int, r Resampler) (*Clip, error) {
	if c.SampleRate == targetRate {
		return c, nil
	}
	if r == nil {
		r = NewLinearResampler()
	}
	samples, err := r.Resample(c.Samples, c.SampleRate, targetRate, c.Channels)
	if err != nil {
		return nil, err
	}
	return &Clip{Samples: samples, SampleRate: targetRate, Channels: c.Channels}, nil
}
