package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lectorlabs/narrator/internal/logging"
)

const (
	defaultDashScopeEndpoint = "wss://dashscope.aliyuncs.com/api-ws/v1/inference"
	dashScopeDefaultModel    = "cosyvoice-v3-flash"
	dashScopeDefaultVoice    = "loongstella"
	dashScopeMaxChunkLen     = 2000
)

// DashScopeProvider synthesizes one chunk per duplex websocket task: it
// opens a task, streams the chunk text, collects the binary audio frames and
// closes the task. Mid-tier quality, credentialed.
type DashScopeProvider struct {
	apiKey     string
	endpoint   string
	workspace  string
	model      string
	sampleRate int
}

// NewDashScopeProvider builds the provider; workspace and model are
// optional and fall back to the account default and the default model.
func NewDashScopeProvider(apiKey, workspace, model string) *DashScopeProvider {
	if model == "" {
		model = dashScopeDefaultModel
	}
	return &DashScopeProvider{
		apiKey:     apiKey,
		endpoint:   defaultDashScopeEndpoint,
		workspace:  workspace,
		model:      model,
		sampleRate: 22050,
	}
}

func (p *DashScopeProvider) ID() string { return "dashscope" }

func (p *DashScopeProvider) MaxChunkLen() int { return dashScopeMaxChunkLen }

func (p *DashScopeProvider) Available() bool { return true }

func (p *DashScopeProvider) Configured() bool { return plausibleKey(p.apiKey) }

func (p *DashScopeProvider) NormalizeSettings(settings Settings) Settings {
	settings.Rate = clamp(settings.Rate, 0.5, 2.0)
	settings.Pitch = clamp(settings.Pitch, 0.5, 2.0)
	settings.Volume = clamp(settings.Volume, 0, 1)
	settings.Format = "mp3"
	if settings.VoiceID == "" {
		settings.VoiceID = dashScopeDefaultVoice
	}
	if settings.SampleRate == 0 {
		settings.SampleRate = p.sampleRate
	}
	return settings
}

// dashScopeVolume maps normalized volume [0, 1] linearly into the
// provider's integer [0, 100] domain.
func dashScopeVolume(volume float64) int {
	return int(math.Round(clamp(volume, 0, 1) * 100))
}

func (p *DashScopeProvider) Synthesize(ctx context.Context, text string, settings Settings) ([]byte, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	task := &dashScopeTask{
		conn:      conn,
		taskID:    uuid.NewString(),
		startedCh: make(chan struct{}),
		doneCh:    make(chan struct{}),
		errCh:     make(chan error, 1),
	}
	task.startReceiver()

	if err := task.sendRunTask(p.model, settings); err != nil {
		return nil, err
	}
	if err := task.waitStarted(ctx); err != nil {
		return nil, err
	}
	if err := task.sendContinueTask(text); err != nil {
		return nil, err
	}
	if err := task.sendFinishTask(); err != nil {
		return nil, err
	}

	select {
	case <-task.doneCh:
		if err := task.err(); err != nil {
			return nil, err
		}
		return task.audioBytes(), nil
	case err := <-task.errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *DashScopeProvider) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", fmt.Sprintf("bearer %s", p.apiKey))
	if strings.TrimSpace(p.workspace) != "" {
		header.Set("X-DashScope-WorkSpace", strings.TrimSpace(p.workspace))
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.endpoint, header)
	return conn, err
}

// dashScopeTask is the receive side of one synthesis task. The receiver
// goroutine owns reads; writes are serialized by writeMu.
type dashScopeTask struct {
	conn    *websocket.Conn
	taskID  string
	writeMu sync.Mutex

	audioMu sync.Mutex
	audio   bytes.Buffer

	startedCh   chan struct{}
	doneCh      chan struct{}
	errCh       chan error
	startedOnce sync.Once
	doneOnce    sync.Once
}

func (t *dashScopeTask) audioBytes() []byte {
	t.audioMu.Lock()
	defer t.audioMu.Unlock()
	out := make([]byte, t.audio.Len())
	copy(out, t.audio.Bytes())
	return out
}

func (t *dashScopeTask) waitStarted(ctx context.Context) error {
	select {
	case <-t.startedCh:
		return nil
	case err := <-t.errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *dashScopeTask) sendRunTask(model string, settings Settings) error {
	return t.send(dashScopeMessage{
		Header: taskHeader{Action: "run-task", TaskID: t.taskID, Streaming: "duplex"},
		Payload: taskPayload{
			TaskGroup: "audio",
			Task:      "tts",
			Function:  "SpeechSynthesizer",
			Model:     model,
			Parameters: map[string]any{
				"text_type":   "PlainText",
				"voice":       settings.VoiceID,
				"format":      settings.Format,
				"sample_rate": settings.SampleRate,
				"volume":      dashScopeVolume(settings.Volume),
				"rate":        settings.Rate,
				"pitch":       settings.Pitch,
			},
			Input: map[string]any{},
		},
	})
}

func (t *dashScopeTask) sendContinueTask(text string) error {
	return t.send(dashScopeMessage{
		Header: taskHeader{Action: "continue-task", TaskID: t.taskID, Streaming: "duplex"},
		Payload: taskPayload{
			Input: map[string]any{"text": text},
		},
	})
}

func (t *dashScopeTask) sendFinishTask() error {
	return t.send(dashScopeMessage{
		Header:  taskHeader{Action: "finish-task", TaskID: t.taskID, Streaming: "duplex"},
		Payload: taskPayload{Input: map[string]any{}},
	})
}

func (t *dashScopeTask) send(msg dashScopeMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *dashScopeTask) startReceiver() {
	go func() {
		for {
			messageType, data, err := t.conn.ReadMessage()
			if err != nil {
				t.closeWithError(err)
				return
			}

			if messageType == websocket.BinaryMessage {
				t.audioMu.Lock()
				t.audio.Write(data)
				t.audioMu.Unlock()
				continue
			}

			if messageType != websocket.TextMessage {
				continue
			}

			var event dashScopeEvent
			if err := json.Unmarshal(data, &event); err != nil {
				t.closeWithError(err)
				return
			}
			if t.handleEvent(event) {
				return
			}
		}
	}()
}

func (t *dashScopeTask) handleEvent(event dashScopeEvent) bool {
	switch event.Header.Event {
	case "task-started":
		t.startedOnce.Do(func() { close(t.startedCh) })
	case "task-finished":
		t.markDone()
		return true
	case "task-failed":
		t.closeWithError(mapDashScopeError(event.Header.ErrorCode, event.Header.ErrorMessage))
		return true
	case "result-generated":
		// expected progress event, nothing to do
	}
	return false
}

func (t *dashScopeTask) closeWithError(err error) {
	if err != nil {
		select {
		case t.errCh <- err:
		default:
		}
	}
	t.markDone()
}

func (t *dashScopeTask) markDone() {
	t.doneOnce.Do(func() { close(t.doneCh) })
}

func (t *dashScopeTask) err() error {
	select {
	case err := <-t.errCh:
		return err
	default:
		return nil
	}
}

type dashScopeMessage struct {
	Header  taskHeader  `json:"header"`
	Payload taskPayload `json:"payload"`
}

type taskHeader struct {
	Action       string `json:"action,omitempty"`
	TaskID       string `json:"task_id,omitempty"`
	Streaming    string `json:"streaming,omitempty"`
	Event        string `json:"event,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type taskPayload struct {
	TaskGroup  string         `json:"task_group,omitempty"`
	Task       string         `json:"task,omitempty"`
	Function   string         `json:"function,omitempty"`
	Model      string         `json:"model,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Input      map[string]any `json:"input"`
}

type dashScopeEvent struct {
	Header taskHeader `json:"header"`
}

func mapDashScopeError(code, message string) error {
	logging.Errorf("dashscope task failed: code=%s, message=%s", code, message)
	lower := strings.ToLower(code + " " + message)
	switch {
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "authentication"):
		return fmt.Errorf("%w: %s", ErrAuth, message)
	case strings.Contains(lower, "invalidparameter"), strings.Contains(lower, "bad request"):
		return fmt.Errorf("%w: %s", ErrBadRequest, message)
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "tempor"):
		return fmt.Errorf("%w: %s", ErrTransient, message)
	}
	if message == "" {
		message = "dashscope task failed"
	}
	return errors.New(message)
}
