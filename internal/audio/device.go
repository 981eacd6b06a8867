package audio

import (
	"errors"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/lectorlabs/narrator/internal/logging"
)

// RenderFunc fills one interleaved frame buffer with normalized float
// samples in [-1, 1]. The buffer arrives zeroed; leaving it untouched plays
// silence. Called from the audio thread, so it must not block.
type RenderFunc func(out []float32)

// Device is the output side of playback. The portaudio implementation is
// the production device; tests substitute a fake that pulls frames on
// demand.
type Device interface {
	Open(sampleRate, channels, framesPerBuffer int, render RenderFunc) error
	Start() error
	Stop() error
	Close() error
}

type portAudioDevice struct {
	mu       sync.Mutex
	stream   *portaudio.Stream
	render   RenderFunc
	channels int
	scratch  []float32
	started  bool
}

func NewPortAudioDevice() Device {
	return &portAudioDevice{}
}

func (d *portAudioDevice) Open(sampleRate, channels, framesPerBuffer int, render RenderFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream != nil {
		return &PlaybackError{Op: "open", Err: errors.New("device already open")}
	}
	if render == nil {
		return &PlaybackError{Op: "open", Err: errors.New("render callback is required")}
	}

	if err := portaudio.Initialize(); err != nil {
		return &PlaybackError{Op: "open", Err: err}
	}

	d.render = render
	d.channels = channels
	d.scratch = make([]float32, framesPerBuffer*channels)

	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), framesPerBuffer, d.callback)
	if err != nil {
		portaudio.Terminate()
		return &PlaybackError{Op: "open", Err: err}
	}
	d.stream = stream
	return nil
}

func (d *portAudioDevice) callback(out [][]float32) {
	frames := len(out[0])
	needed := frames * d.channels
	if len(d.scratch) < needed {
		d.scratch = make([]float32, needed)
	}
	buf := d.scratch[:needed]
	for i := range buf {
		buf[i] = 0
	}

	d.render(buf)

	for i := 0; i < frames; i++ {
		for ch := 0; ch < d.channels; ch++ {
			v := buf[i*d.channels+ch]
			if v > 1.0 {
				v = 1.0
			} else if v < -1.0 {
				v = -1.0
			}
			out[ch][i] = v
		}
	}
}

func (d *portAudioDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return &PlaybackError{Op: "start", Err: errors.New("device not open")}
	}
	if d.started {
		return nil
	}
	if err := d.stream.Start(); err != nil {
		return &PlaybackError{Op: "start", Err: err}
	}
	d.started = true
	return nil
}

func (d *portAudioDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil || !d.started {
		return nil
	}
	d.started = false
	if err := d.stream.Stop(); err != nil {
		return &PlaybackError{Op: "stop", Err: err}
	}
	return nil
}

func (d *portAudioDevice) Close() error {
	d.mu.Lock()
	stream := d.stream
	d.stream = nil
	d.started = false
	d.mu.Unlock()

	if stream == nil {
		return nil
	}
	if err := stream.Close(); err != nil {
		logging.Errorf("audio device: close failed: %v", err)
	}
	portaudio.Terminate()
	return nil
}
