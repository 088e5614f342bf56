// Package sink provides the UI surfaces a workflow run can drive: an
// in-memory panel model, a JSON-lines stream and a Server-Sent Events stream.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golovatskygroup/journey-lens/internal/workflow"
)

var (
	ErrNoActiveTool      = errors.New("no tool is revealed")
	ErrUnsupportedAction = errors.New("unsupported action")
)

// PanelState is a snapshot of the tool panel.
type PanelState struct {
	Tool     string              `json:"tool,omitempty"`
	Guidance string              `json:"guidance,omitempty"`
	Fields   map[string]string   `json:"fields"`
	Lists    map[string][]string `json:"lists"`
}

// Panel models the tool panel a user sees. Revealing a tool resets its
// fields and lists; every other action needs a revealed tool.
type Panel struct {
	mu    sync.Mutex
	state PanelState
}

func NewPanel() *Panel {
	return &Panel{state: emptyState("")}
}

func emptyState(tool string) PanelState {
	return PanelState{
		Tool:   tool,
		Fields: map[string]string{},
		Lists:  map[string][]string{},
	}
}

func (p *Panel) Dispatch(ctx context.Context, action workflow.ActionType, data workflow.ActionData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if action == workflow.ActionRevealTool {
		if data.Tool == "" {
			return fmt.Errorf("%s: empty tool", action)
		}
		p.state = emptyState(data.Tool)
		p.state.Guidance = data.Text
		return nil
	}
	if p.state.Tool == "" {
		return fmt.Errorf("%s: %w", action, ErrNoActiveTool)
	}

	switch action {
	case workflow.ActionUpdateGuidance:
		p.state.Guidance = data.Text
	case workflow.ActionSetField:
		p.state.Fields[data.Field] = data.Value
	case workflow.ActionAppendToList:
		p.state.Lists[data.List] = append(p.state.Lists[data.List], data.Value)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAction, action)
	}
	return nil
}

// Snapshot returns a deep copy of the current state.
func (p *Panel) Snapshot() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := emptyState(p.state.Tool)
	out.Guidance = p.state.Guidance
	for k, v := range p.state.Fields {
		out.Fields[k] = v
	}
	for k, v := range p.state.Lists {
		out.Lists[k] = append([]string(nil), v...)
	}
	return out
}
