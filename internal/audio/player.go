package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/lectorlabs/narrator/internal/logging"
)

const (
	defaultFramesPerBuffer = 1024
	defaultTickInterval    = 100 * time.Millisecond
)

type PlayerConfig struct {
	// FramesPerBuffer is the device buffer size in frames.
	FramesPerBuffer int
	// TickInterval is how often word boundary estimates are re-evaluated.
	TickInterval time.Duration
	// OutputSampleRate forces clips onto one device rate via resampling.
	// Zero plays each clip at its native rate.
	OutputSampleRate int
}

func DefaultPlayerConfig() *PlayerConfig {
	return &PlayerConfig{
		FramesPerBuffer: defaultFramesPerBuffer,
		TickInterval:    defaultTickInterval,
	}
}

// Player plays one clip at a time on an output device. Playback is
// asynchronous: Play returns once the device is running and completion is
// reported through the OnComplete callback and the Done channel. Pause
// freezes the sample cursor and the word clock; Resume picks both up where
// they left off. Stop is idempotent and never reports completion.
type Player struct {
	device    Device
	cfg       *PlayerConfig
	resampler Resampler

	mu         sync.Mutex
	clip       *Clip
	cursor     int
	gain       float64
	playing    bool
	paused     bool
	est        *wordEstimator
	onComplete func()
	onWord     func(WordEvent)

	doneCh   chan struct{}
	finishCh chan struct{}
	stopCh   chan struct{}
	doneOnce *sync.Once
}

func NewPlayer(device Device, cfg *PlayerConfig) *Player {
	if cfg == nil {
		cfg = DefaultPlayerConfig()
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = defaultFramesPerBuffer
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}

	closed := make(chan struct{})
	close(closed)
	return &Player{
		device:    device,
		cfg:       cfg,
		resampler: NewLinearResampler(),
		gain:      1.0,
		doneCh:    closed,
		doneOnce:  &sync.Once{},
	}
}

func (p *Player) SetOnComplete(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onComplete = fn
}

func (p *Player) SetOnWord(fn func(WordEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onWord = fn
}

// SetGain scales output amplitude; the change applies to the running clip.
func (p *Player) SetGain(gain float64) {
	if gain < 0 {
		gain = 0
	} else if gain > 1 {
		gain = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gain = gain
}

// Play starts the clip and returns. Text is the chunk the clip was
// synthesized from; word boundaries are estimated against it. A clip with no
// frames completes immediately, before Play returns, and emits no word
// events.
func (p *Player) Play(clip *Clip, text string) error {
	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return &PlaybackError{Op: "play", Err: errors.New("player is busy")}
	}

	if clip == nil || clip.Frames() == 0 {
		onComplete := p.onComplete
		p.doneCh = make(chan struct{})
		close(p.doneCh)
		p.mu.Unlock()
		if onComplete != nil {
			onComplete()
		}
		return nil
	}

	if p.cfg.OutputSampleRate > 0 {
		resampled, err := clip.Resampled(p.cfg.OutputSampleRate, p.resampler)
		if err != nil {
			p.mu.Unlock()
			return &PlaybackError{Op: "play", Err: err}
		}
		clip = resampled
	}

	onWord := p.onWord
	est := newWordEstimator(text, clip.Duration(), func(ev WordEvent) {
		if onWord != nil {
			onWord(ev)
		}
	})

	p.clip = clip
	p.cursor = 0
	p.est = est
	p.playing = true
	p.paused = false
	p.doneCh = make(chan struct{})
	p.finishCh = make(chan struct{})
	p.stopCh = make(chan struct{})
	p.doneOnce = &sync.Once{}
	p.mu.Unlock()

	if err := p.device.Open(clip.SampleRate, clip.Channels, p.cfg.FramesPerBuffer, p.render); err != nil {
		p.reset()
		return err
	}
	if err := p.device.Start(); err != nil {
		p.device.Close()
		p.reset()
		return err
	}

	est.start()
	go p.watch(est)
	return nil
}

// render is the device pull callback. It must not block and must not call
// back into the device.
func (p *Player) render(out []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing || p.paused || p.clip == nil {
		return
	}

	remaining := len(p.clip.Samples) - p.cursor
	if remaining <= 0 {
		return
	}

	n := len(out)
	if n > remaining {
		n = remaining
	}
	gain := float32(p.gain)
	for i := 0; i < n; i++ {
		out[i] = float32(p.clip.Samples[p.cursor+i]) / 32768.0 * gain
	}
	p.cursor += n

	if p.cursor >= len(p.clip.Samples) {
		select {
		case <-p.finishCh:
		default:
			close(p.finishCh)
		}
	}
}

// watch drives the word clock and handles end of clip. One goroutine per
// Play call; it exits on finish or stop.
func (p *Player) watch(est *wordEstimator) {
	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	p.mu.Lock()
	finishCh := p.finishCh
	stopCh := p.stopCh
	p.mu.Unlock()

	for {
		select {
		case <-ticker.C:
			est.emitDue()
		case <-finishCh:
			p.complete(est)
			return
		case <-stopCh:
			return
		}
	}
}

func (p *Player) complete(est *wordEstimator) {
	if err := p.device.Stop(); err != nil {
		logging.Errorf("player: device stop after clip end: %v", err)
	}
	p.device.Close()

	est.finish()

	p.mu.Lock()
	onComplete := p.onComplete
	doneCh := p.doneCh
	doneOnce := p.doneOnce
	p.playing = false
	p.paused = false
	p.clip = nil
	p.est = nil
	p.mu.Unlock()

	doneOnce.Do(func() {
		if onComplete != nil {
			onComplete()
		}
		close(doneCh)
	})
}

// Pause freezes playback. Pausing while already paused or while idle is a
// no-op.
func (p *Player) Pause() {
	p.mu.Lock()
	if !p.playing || p.paused {
		p.mu.Unlock()
		return
	}
	p.paused = true
	est := p.est
	p.mu.Unlock()

	est.pause()
	if err := p.device.Stop(); err != nil {
		logging.Errorf("player: pause device stop: %v", err)
	}
}

// Resume continues a paused clip from the frozen cursor.
func (p *Player) Resume() {
	p.mu.Lock()
	if !p.playing || !p.paused {
		p.mu.Unlock()
		return
	}
	p.paused = false
	est := p.est
	p.mu.Unlock()

	est.resume()
	if err := p.device.Start(); err != nil {
		logging.Errorf("player: resume device start: %v", err)
	}
}

// Stop abandons the clip. Idempotent; never fires OnComplete. Stopping an
// idle player is a no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.paused = false
	p.clip = nil
	p.est = nil
	stopCh := p.stopCh
	doneCh := p.doneCh
	doneOnce := p.doneOnce
	p.mu.Unlock()

	select {
	case <-stopCh:
	default:
		close(stopCh)
	}

	if err := p.device.Stop(); err != nil {
		logging.Errorf("player: stop device: %v", err)
	}
	p.device.Close()

	doneOnce.Do(func() { close(doneCh) })
}

func (p *Player) reset() {
	p.mu.Lock()
	p.playing = false
	p.paused = false
	p.clip = nil
	p.est = nil
	doneCh := p.doneCh
	doneOnce := p.doneOnce
	p.mu.Unlock()
	doneOnce.Do(func() { close(doneCh) })
}

// Done is closed when the current clip finishes or is stopped. For an idle
// player the returned channel is already closed.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doneCh
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && !p.paused
}

func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && p.paused
}

// Progress reports the fraction of the current clip already rendered,
// in [0, 1]. Idle players report 0.
func (p *Player) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clip == nil || len(p.clip.Samples) == 0 {
		return 0
	}
	return float64(p.cursor) / float64(len(p.clip.Samples))
}

// CurrentTime is the playback position within the current clip.
func (p *Player) CurrentTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clip == nil || p.clip.SampleRate == 0 || p.clip.Channels == 0 {
		return 0
	}
	frames := p.cursor / p.clip.Channels
	return time.Duration(frames) * time.Second / time.Duration(p.clip.SampleRate)
}

// ClipDuration is the total duration of the current clip, zero when idle.
func (p *Player) ClipDuration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clip == nil {
		return 0
	}
	return p.clip.Duration()
}
