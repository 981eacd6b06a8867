package audio

import (
	"sync"
	"testing"
	"time"
)

// fakeDevice pulls frames from the render callback on its own goroutine,
// standing in for the sound card.
type fakeDevice struct {
	mu      sync.Mutex
	render  RenderFunc
	bufLen  int
	running bool
	closed  bool
	quit    chan struct{}
	opens   int
	closes  int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{}
}

func (d *fakeDevice) Open(sampleRate, channels, framesPerBuffer int, render RenderFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.render = render
	d.bufLen = framesPerBuffer * channels
	d.quit = make(chan struct{})
	d.closed = false
	d.opens++

	go d.pump(d.quit)
	return nil
}

func (d *fakeDevice) pump(quit chan struct{}) {
	for {
		select {
		case <-quit:
			return
		default:
		}

		d.mu.Lock()
		running := d.running
		render := d.render
		buf := make([]float32, d.bufLen)
		d.mu.Unlock()

		if running && render != nil {
			render(buf)
		}
		time.Sleep(time.Millisecond)
	}
}

func (d *fakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = true
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.quit != nil {
		close(d.quit)
		d.quit = nil
	}
	d.closed = true
	d.closes++
	return nil
}

func (d *fakeDevice) isRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// shortClip is ~100ms of mono audio at 16kHz.
func shortClip() *Clip {
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16(i % 500)
	}
	return &Clip{Samples: samples, SampleRate: 16000, Channels: 1}
}

func testPlayerConfig() *PlayerConfig {
	return &PlayerConfig{
		FramesPerBuffer: 160, // 10ms buffers
		TickInterval:    5 * time.Millisecond,
	}
}

func waitDone(t *testing.T, p *Player) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for playback to finish")
	}
}

func TestPlayerPlaysToCompletion(t *testing.T) {
	device := newFakeDevice()
	p := NewPlayer(device, testPlayerConfig())

	var mu sync.Mutex
	completions := 0
	var words []WordEvent
	p.SetOnComplete(func() {
		mu.Lock()
		completions++
		mu.Unlock()
	})
	p.SetOnWord(func(ev WordEvent) {
		mu.Lock()
		words = append(words, ev)
		mu.Unlock()
	})

	if err := p.Play(shortClip(), "hello brave new world"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	waitDone(t, p)

	mu.Lock()
	defer mu.Unlock()
	if completions != 1 {
		t.Errorf("completions = %d, want 1", completions)
	}
	if len(words) != 4 {
		t.Fatalf("got %d word events, want 4", len(words))
	}
	for i, ev := range words {
		if ev.Index != i {
			t.Errorf("word %d has Index %d", i, ev.Index)
		}
	}
	if words[3].Word != "world" || words[3].CharOffset != 16 {
		t.Errorf("last word = %+v, want world at offset 16", words[3])
	}
	if !device.isClosed() {
		t.Error("device not closed after completion")
	}
}

func TestPlayerZeroFrameClipCompletesImmediately(t *testing.T) {
	device := newFakeDevice()
	p := NewPlayer(device, testPlayerConfig())

	completions := 0
	words := 0
	p.SetOnComplete(func() { completions++ })
	p.SetOnWord(func(WordEvent) { words++ })

	clip := &Clip{SampleRate: 16000, Channels: 1}
	if err := p.Play(clip, "never spoken"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	// Completion is synchronous for an empty clip.
	if completions != 1 {
		t.Errorf("completions = %d, want 1", completions)
	}
	if words != 0 {
		t.Errorf("word events = %d, want 0", words)
	}
	select {
	case <-p.Done():
	default:
		t.Error("Done not closed for empty clip")
	}
	if device.opens != 0 {
		t.Error("device opened for empty clip")
	}
}

func TestPlayerStopNeverCompletes(t *testing.T) {
	device := newFakeDevice()
	p := NewPlayer(device, testPlayerConfig())

	completions := 0
	p.SetOnComplete(func() { completions++ })

	// A long clip so Stop lands mid-play.
	samples := make([]int16, 16000*5)
	clip := &Clip{Samples: samples, SampleRate: 16000, Channels: 1}
	if err := p.Play(clip, "some long text"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	p.Stop()
	p.Stop() // idempotent
	waitDone(t, p)

	if completions != 0 {
		t.Errorf("completions = %d, want 0 after stop", completions)
	}
	if p.IsPlaying() || p.IsPaused() {
		t.Error("player still active after stop")
	}
	if !device.isClosed() {
		t.Error("device not closed after stop")
	}
}

func TestPlayerStopWhileIdleIsNoop(t *testing.T) {
	p := NewPlayer(newFakeDevice(), testPlayerConfig())
	p.Stop()
	select {
	case <-p.Done():
	default:
		t.Error("idle player Done should be closed")
	}
}

func TestPlayerPauseFreezesCursor(t *testing.T) {
	device := newFakeDevice()
	p := NewPlayer(device, testPlayerConfig())

	samples := make([]int16, 16000) // 1s
	clip := &Clip{Samples: samples, SampleRate: 16000, Channels: 1}
	if err := p.Play(clip, "one two three"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	p.Pause()
	p.Pause() // idempotent

	if !p.IsPaused() {
		t.Fatal("IsPaused = false after pause")
	}
	if p.IsPlaying() {
		t.Error("IsPlaying = true while paused")
	}
	if device.isRunning() {
		t.Error("device still running while paused")
	}

	frozen := p.Progress()
	if frozen <= 0 {
		t.Error("no progress before pause")
	}
	time.Sleep(20 * time.Millisecond)
	if got := p.Progress(); got != frozen {
		t.Errorf("progress moved while paused: %v -> %v", frozen, got)
	}

	p.Resume()
	if !p.IsPlaying() {
		t.Error("IsPlaying = false after resume")
	}
	waitDone(t, p)
}

func TestPlayerRejectsConcurrentPlay(t *testing.T) {
	device := newFakeDevice()
	p := NewPlayer(device, testPlayerConfig())

	samples := make([]int16, 16000*5)
	clip := &Clip{Samples: samples, SampleRate: 16000, Channels: 1}
	if err := p.Play(clip, "first"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	defer p.Stop()

	if err := p.Play(shortClip(), "second"); err == nil {
		t.Error("expected busy error for concurrent Play")
	}
}

func TestPlayerResamplesToOutputRate(t *testing.T) {
	device := newFakeDevice()
	cfg := testPlayerConfig()
	cfg.OutputSampleRate = 48000
	p := NewPlayer(device, cfg)

	if err := p.Play(shortClip(), "resampled"); err != nil {
		t.Fatalf("Play: %v", err)
	}
	// 100ms at 48kHz mono.
	if got := p.ClipDuration(); got < 95*time.Millisecond || got > 105*time.Millisecond {
		t.Errorf("ClipDuration = %v, want ~100ms", got)
	}
	waitDone(t, p)
}
