package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lectorlabs/narrator/internal/audio"
	"github.com/lectorlabs/narrator/internal/logging"
	"github.com/lectorlabs/narrator/internal/text"
	"github.com/lectorlabs/narrator/internal/tts"
)

// ErrNoSpeakableText means the input was empty or whitespace after
// normalization; there is nothing to narrate.
var ErrNoSpeakableText = errors.New("no speakable text after normalization")

const defaultSettleDelay = 20 * time.Millisecond

// SpeakOptions carry the per-utterance callbacks. All callbacks are invoked
// from engine goroutines and must not call back into the engine.
type SpeakOptions struct {
	OnComplete func()
	OnWord     func(WordBoundary)
	OnError    func(error)
}

type SpeakOption func(*SpeakOptions)

func WithOnComplete(fn func()) SpeakOption {
	return func(o *SpeakOptions) { o.OnComplete = fn }
}

func WithOnWord(fn func(WordBoundary)) SpeakOption {
	return func(o *SpeakOptions) { o.OnWord = fn }
}

func WithOnError(fn func(error)) SpeakOption {
	return func(o *SpeakOptions) { o.OnError = fn }
}

type EngineConfig struct {
	// Settings are the initial voice parameters; adjustable at runtime.
	Settings tts.Settings
	// SettleDelay separates a forced stop from the next utterance so the
	// output device has released before it is reopened.
	SettleDelay time.Duration
}

func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Settings:    tts.DefaultSettings(),
		SettleDelay: defaultSettleDelay,
	}
}

// Engine narrates one utterance at a time: it segments input text, fetches
// audio for each chunk through the active provider and plays the chunks back
// to back. Speak on a busy engine stops the running utterance first. All
// progress is visible twice, through the per-utterance callbacks and through
// the event bus.
type Engine struct {
	registry    *tts.Registry
	player      *audio.Player
	bus         EventBus
	newClient   func(tts.Provider) *tts.Client
	settleDelay time.Duration

	mu       sync.Mutex
	settings tts.Settings
	sess     *narration
}

// narration is the engine-internal state of one utterance.
type narration struct {
	id       string
	chunks   []text.Chunk
	client   *tts.Client
	settings tts.Settings
	opts     SpeakOptions
	sm       *StateMachine
	ctx      context.Context
	cancel   context.CancelFunc

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	gate     *pauseGate

	chunksDone int // guarded by Engine.mu
}

func (n *narration) requestStop() {
	n.stopOnce.Do(func() { close(n.stopCh) })
	n.cancel()
}

func (n *narration) stopped() bool {
	select {
	case <-n.stopCh:
		return true
	default:
		return false
	}
}

func NewEngine(registry *tts.Registry, player *audio.Player, bus EventBus, cfg *EngineConfig) *Engine {
	if cfg == nil {
		cfg = DefaultEngineConfig()
	}
	settings := cfg.Settings
	if settings == (tts.Settings{}) {
		settings = tts.DefaultSettings()
	}
	settleDelay := cfg.SettleDelay
	if settleDelay <= 0 {
		settleDelay = defaultSettleDelay
	}
	if bus == nil {
		bus = NewEventBus()
	}

	return &Engine{
		registry:    registry,
		player:      player,
		bus:         bus,
		newClient:   tts.NewClient,
		settleDelay: settleDelay,
		settings:    settings,
	}
}

func (e *Engine) Bus() EventBus {
	return e.bus
}

// Speak starts narrating input and returns once the session is launched.
// A running utterance is stopped first; its in-flight audio is discarded.
// The ctx bounds the whole narration, not just this call.
func (e *Engine) Speak(ctx context.Context, input string, opts ...SpeakOption) error {
	var options SpeakOptions
	for _, opt := range opts {
		opt(&options)
	}

	e.mu.Lock()
	prior := e.sess
	settings := e.settings
	e.mu.Unlock()

	if prior != nil {
		e.Stop()
		time.Sleep(e.settleDelay)
	}

	provider := e.registry.Active()
	chunks := text.Segment(input, provider.MaxChunkLen())
	if len(chunks) == 0 || (len(chunks) == 1 && chunks[0].Text == "") {
		return ErrNoSpeakableText
	}

	sessCtx, cancel := context.WithCancel(ctx)
	n := &narration{
		id:       uuid.NewString(),
		chunks:   chunks,
		client:   e.newClient(provider),
		settings: provider.NormalizeSettings(settings),
		opts:     options,
		sm:       NewStateMachine(),
		ctx:      sessCtx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		gate:     &pauseGate{},
	}

	e.mu.Lock()
	e.sess = n
	e.mu.Unlock()

	logging.SetTraceID(n.id)
	logging.StartUtterance()
	logging.Infof("session %s: narrating %d chunks via %s", n.id, len(chunks), provider.ID())

	go e.run(n)
	return nil
}

// run is the chunk loop: one pass per chunk, synthesize then play, with
// stop and pause checkpoints between the phases. It is the only goroutine
// that drives the player for its narration.
func (e *Engine) run(n *narration) {
	defer close(n.done)

	for i := 0; i < len(n.chunks); i++ {
		if n.gate.wait(n.stopCh) {
			e.finishStopped(n)
			return
		}
		chunk := n.chunks[i]

		e.setState(n, StateSynthesizing)
		data, err := n.client.Synthesize(n.ctx, chunk.Text, n.settings)
		if err != nil {
			if n.stopped() || errors.Is(err, context.Canceled) {
				e.finishStopped(n)
				return
			}
			e.fail(n, chunk.Index, err)
			return
		}

		// A stop or pause that landed during synthesis wins over the
		// fetched audio.
		if n.gate.wait(n.stopCh) {
			e.finishStopped(n)
			return
		}

		clip, err := audio.Decode(data, n.settings.Format, n.settings.SampleRate, 1)
		if err != nil {
			e.fail(n, chunk.Index, err)
			return
		}

		e.player.SetOnWord(func(ev audio.WordEvent) {
			e.emitWord(n, chunk.Index, ev)
		})
		e.setState(n, StatePlaying)
		if err := e.player.Play(clip, chunk.Text); err != nil {
			e.fail(n, chunk.Index, err)
			return
		}

		<-e.player.Done()
		if n.stopped() {
			e.finishStopped(n)
			return
		}

		e.mu.Lock()
		n.chunksDone++
		e.mu.Unlock()
	}

	e.finishCompleted(n)
}

// Pause freezes the session. Mid-clip the player pauses in place; during
// synthesis the loop holds the fetched audio and waits. Pausing a paused or
// idle engine is a no-op.
func (e *Engine) Pause() {
	e.mu.Lock()
	n := e.sess
	var state State
	if n != nil {
		state = n.sm.Current()
	}
	e.mu.Unlock()

	if n == nil {
		logging.Debugf("pause ignored: no active session")
		return
	}

	switch {
	case e.player.IsPlaying():
		e.player.Pause()
		e.setState(n, StatePaused)
	case state == StateSynthesizing || state == StateIdle:
		n.gate.pause()
		e.setState(n, StatePaused)
	default:
		logging.Debugf("pause ignored in state %s", state)
	}
}

// Resume continues a paused session, either mid-clip or at the chunk the
// loop was frozen on. Resuming a session that is not paused is a no-op.
func (e *Engine) Resume() {
	e.mu.Lock()
	n := e.sess
	e.mu.Unlock()

	if n == nil {
		logging.Debugf("resume ignored: no active session")
		return
	}

	if e.player.IsPaused() {
		e.setState(n, StatePlaying)
		e.player.Resume()
		return
	}
	if n.gate.paused() {
		e.setState(n, StateSynthesizing)
		n.gate.resume()
		return
	}
	logging.Debugf("resume ignored: session is not paused")
}

// Stop abandons the session and returns once the chunk loop has exited.
// In-flight synthesis results are discarded. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	n := e.sess
	e.mu.Unlock()
	if n == nil {
		return
	}

	n.requestStop()
	e.player.Stop()
	<-n.done
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return StateIdle
	}
	return e.sess.sm.Current()
}

func (e *Engine) IsSpeaking() bool {
	state := e.State()
	return state == StateSynthesizing || state == StatePlaying
}

func (e *Engine) IsPaused() bool {
	return e.State() == StatePaused
}

// Progress reports the played fraction of the whole utterance in [0, 1]:
// finished chunks count fully, the current clip counts by its cursor.
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	n := e.sess
	var done, total int
	if n != nil {
		done = n.chunksDone
		total = len(n.chunks)
	}
	e.mu.Unlock()

	if n == nil || total == 0 {
		return 0
	}
	progress := (float64(done) + e.player.Progress()) / float64(total)
	if progress > 1 {
		progress = 1
	}
	return progress
}

// SetVoice applies to the next Speak; the running utterance keeps its voice.
func (e *Engine) SetVoice(voiceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.VoiceID = voiceID
}

func (e *Engine) SetRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.Rate = rate
}

func (e *Engine) SetPitch(pitch float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.Pitch = pitch
}

// SetVolume adjusts both the synthesis setting for the next utterance and
// the output gain of the running one.
func (e *Engine) SetVolume(volume float64) {
	e.mu.Lock()
	e.settings.Volume = volume
	e.mu.Unlock()
	e.player.SetGain(volume)
}

// SelectProvider switches the synthesis backend for subsequent utterances.
func (e *Engine) SelectProvider(id string) error {
	return e.registry.Select(id)
}

func (e *Engine) Providers() []tts.Descriptor {
	return e.registry.List()
}

// setState transitions the narration and publishes the change. Already
// being in the target state is a no-op.
func (e *Engine) setState(n *narration, to State) {
	e.mu.Lock()
	old := n.sm.Current()
	if old == to {
		e.mu.Unlock()
		return
	}
	if !n.sm.Transition(to) {
		e.mu.Unlock()
		logging.Debugf("session %s: transition %s -> %s rejected", n.id, old, to)
		return
	}
	e.mu.Unlock()

	e.bus.Publish(NewStateChangedEvent(n.id, old, to))
}

func (e *Engine) emitWord(n *narration, chunkIndex int, ev audio.WordEvent) {
	boundary := WordBoundary{
		ChunkIndex: chunkIndex,
		WordIndex:  ev.Index,
		Word:       ev.Word,
		CharOffset: ev.CharOffset,
		Elapsed:    ev.Elapsed,
	}
	e.bus.Publish(NewWordBoundaryEvent(n.id, boundary))
	if n.opts.OnWord != nil {
		n.opts.OnWord(boundary)
	}
}

func (e *Engine) finishCompleted(n *narration) {
	e.setState(n, StateCompleted)
	e.clear(n)
	logging.Infof("session %s: completed", n.id)

	e.bus.Publish(NewUtteranceCompletedEvent(n.id))
	if n.opts.OnComplete != nil {
		n.opts.OnComplete()
	}
}

func (e *Engine) finishStopped(n *narration) {
	e.setState(n, StateStopped)
	e.clear(n)
	logging.Infof("session %s: stopped", n.id)
}

func (e *Engine) fail(n *narration, chunkIndex int, err error) {
	e.setState(n, StateStopped)
	e.clear(n)
	logging.Errorf("session %s: chunk %d failed: %v", n.id, chunkIndex, err)

	e.bus.Publish(NewUtteranceFailedEvent(n.id, chunkIndex, err))
	if n.opts.OnError != nil {
		n.opts.OnError(err)
	}
}

func (e *Engine) clear(n *narration) {
	e.mu.Lock()
	if e.sess == n {
		e.sess = nil
	}
	e.mu.Unlock()
}

// pauseGate blocks the chunk loop between synthesis and playback while the
// session is paused.
type pauseGate struct {
	mu sync.Mutex
	ch chan struct{} // non-nil while paused
}

func (g *pauseGate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ch == nil {
		g.ch = make(chan struct{})
	}
}

func (g *pauseGate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ch != nil {
		close(g.ch)
		g.ch = nil
	}
}

func (g *pauseGate) paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch != nil
}

// wait blocks while the gate is paused. It returns true if the session was
// stopped, whether before or during the wait.
func (g *pauseGate) wait(stop <-chan struct{}) bool {
	for {
		g.mu.Lock()
		ch := g.ch
		g.mu.Unlock()

		if ch == nil {
			select {
			case <-stop:
				return true
			default:
				return false
			}
		}

		select {
		case <-stop:
			return true
		case <-ch:
		}
	}
}
