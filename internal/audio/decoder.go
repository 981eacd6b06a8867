package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Decode turns an encoded synthesis payload into a playable clip. Format is
// one of "mp3", "wav" or "pcm"; sampleRate and channels describe raw PCM
// payloads and are ignored for self-describing containers. A payload that
// decodes to zero duration is an error: there is nothing to play and no
// timeline to estimate word boundaries against.
func Decode(data []byte, format string, sampleRate, channels int) (*Clip, error) {
	format = strings.ToLower(strings.TrimSpace(format))

	if len(data) == 0 {
		return nil, &DecodeError{Format: format, Err: errors.New("empty payload")}
	}

	var (
		clip *Clip
		err  error
	)
	switch format {
	case "mp3":
		clip, err = decodeMP3(data)
	case "wav":
		clip, err = decodeWAV(data)
	case "pcm", "pcm16le", "raw":
		clip, err = decodePCM(data, sampleRate, channels)
	default:
		return nil, &DecodeError{Format: format, Err: errors.New("unsupported format")}
	}
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}

	if clip.Frames() == 0 || clip.Duration() <= 0 {
		return nil, &DecodeError{Format: format, Err: errors.New("payload decodes to zero duration")}
	}
	return clip, nil
}

// decodeMP3 decodes to the library's fixed output layout: 16-bit little
// endian stereo at the source sample rate.
func decodeMP3(data []byte) (*Clip, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, err
	}

	return &Clip{
		Samples:    pcmToSamples(pcm),
		SampleRate: decoder.SampleRate(),
		Channels:   2,
	}, nil
}

func decodeWAV(data []byte) (*Clip, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil {
		return nil, errors.New("wav file has no pcm data")
	}

	samples := make([]int16, len(buf.Data))
	switch buf.SourceBitDepth {
	case 8:
		// 8-bit wav is unsigned
		for i, v := range buf.Data {
			samples[i] = int16((v - 128) << 8)
		}
	case 0, 16:
		for i, v := range buf.Data {
			samples[i] = int16(v)
		}
	case 24:
		for i, v := range buf.Data {
			samples[i] = int16(v >> 8)
		}
	case 32:
		for i, v := range buf.Data {
			samples[i] = int16(v >> 16)
		}
	default:
		return nil, fmt.Errorf("unsupported wav bit depth: %d", buf.SourceBitDepth)
	}

	return &Clip{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

func decodePCM(data []byte, sampleRate, channels int) (*Clip, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("raw pcm requires a sample rate, got %d", sampleRate)
	}
	if channels <= 0 {
		channels = 1
	}
	if len(data)%2 != 0 {
		return nil, errors.New("raw pcm payload has an odd byte count")
	}
	return &Clip{
		Samples:    pcmToSamples(data),
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// pcmToSamples reinterprets little-endian 16-bit PCM bytes as samples.
func pcmToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}
