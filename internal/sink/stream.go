package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golovatskygroup/journey-lens/internal/executor"
	"github.com/golovatskygroup/journey-lens/internal/workflow"
)

// Event is the wire form of a dispatched action.
type Event struct {
	Seq  int                 `json:"seq"`
	Type workflow.ActionType `json:"type"`
	Data workflow.ActionData `json:"data"`
	At   time.Time           `json:"at"`
}

// JSONLines writes one JSON object per action to w.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
	seq int
	now func() time.Time
}

func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w), now: time.Now}
}

func (j *JSONLines) Dispatch(ctx context.Context, action workflow.ActionType, data workflow.ActionData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	if err := j.enc.Encode(Event{Seq: j.seq, Type: action, Data: data, At: j.now().UTC()}); err != nil {
		return fmt.Errorf("write action: %w", err)
	}
	return nil
}

// SSE streams actions to an HTTP client as Server-Sent Events. Actions use
// the "action" event name; Send writes any other event.
type SSE struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	seq     int
	now     func() time.Time
}

// NewSSE writes the event-stream headers. It fails when w cannot flush.
func NewSSE(w http.ResponseWriter) (*SSE, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &SSE{w: w, flusher: flusher, now: time.Now}, nil
}

func (s *SSE) Dispatch(ctx context.Context, action workflow.ActionType, data workflow.ActionData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.write("action", s.seq, Event{Seq: s.seq, Type: action, Data: data, At: s.now().UTC()})
}

// Send writes a named event carrying v as JSON.
func (s *SSE) Send(event string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(event, 0, v)
}

func (s *SSE) write(event string, id int, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	if id > 0 {
		if _, err := fmt.Fprintf(s.w, "id: %d\n", id); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Multi drives several sinks together, in order, stopping at the first
// error.
type Multi []executor.Sink

func Tee(sinks ...executor.Sink) Multi { return Multi(sinks) }

func (m Multi) Dispatch(ctx context.Context, action workflow.ActionType, data workflow.ActionData) error {
	for _, s := range m {
		if err := s.Dispatch(ctx, action, data); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ executor.Sink = (*Panel)(nil)
	_ executor.Sink = (*JSONLines)(nil)
	_ executor.Sink = (*SSE)(nil)
	_ executor.Sink = Multi(nil)
)
