package conversation

import (
	"fmt"

	"github.com/golovatskygroup/journey-lens/internal/failure"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Stage names a step of the routing pipeline. The empty Stage means routing
// has not started yet.
type Stage string

const (
	StageUnset     Stage = ""
	StageRoute     Stage = "route"
	StageSearch    Stage = "search"
	StageCalculate Stage = "calculate"
	StageAnalyze   Stage = "analyze"
	StageRespond   Stage = "respond"
	StageError     Stage = "error"
	StageCompleted Stage = "completed"
)

// Field identifies one of the write-once text payloads of a State.
type Field string

const (
	FieldSearchResults      Field = "search_results"
	FieldAnalysis           Field = "analysis"
	FieldCalculationResults Field = "calculation_results"
	FieldFinalResponse      Field = "final_response"
)

// State is threaded through the routing pipeline. Stages never mutate a State
// they receive; they derive a new one with the helpers below.
type State struct {
	Messages           []Message      `json:"messages"`
	CurrentStage       Stage          `json:"current_stage,omitempty"`
	SearchResults      string         `json:"search_results,omitempty"`
	Analysis           string         `json:"analysis,omitempty"`
	CalculationResults string         `json:"calculation_results,omitempty"`
	FinalResponse      string         `json:"final_response,omitempty"`
	Trace              []Stage        `json:"trace,omitempty"`
	Failure            *failure.Error `json:"-"`
}

// New returns the initial state for a single user utterance.
func New(utterance string) State {
	return State{Messages: []Message{{Role: RoleUser, Content: utterance}}}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Trace = append([]Stage(nil), s.Trace...)
	if s.Failure != nil {
		f := *s.Failure
		out.Failure = &f
	}
	return out
}

func (s State) WithMessage(role Role, content string) State {
	out := s.Clone()
	out.Messages = append(out.Messages, Message{Role: role, Content: content})
	return out
}

func (s State) WithStage(stage Stage) State {
	out := s.Clone()
	out.CurrentStage = stage
	return out
}

// WithFailure records a pending failure and moves the state to the error stage.
func (s State) WithFailure(f *failure.Error) State {
	out := s.Clone()
	out.Failure = f
	out.CurrentStage = StageError
	return out
}

func (s State) WithTrace(stage Stage) State {
	out := s.Clone()
	out.Trace = append(out.Trace, stage)
	return out
}

// Get returns the value of a payload field.
func (s State) Get(field Field) string {
	switch field {
	case FieldSearchResults:
		return s.SearchResults
	case FieldAnalysis:
		return s.Analysis
	case FieldCalculationResults:
		return s.CalculationResults
	case FieldFinalResponse:
		return s.FinalResponse
	default:
		return ""
	}
}

// Set returns a copy of s with field populated. Payload fields are write-once:
// setting a field that already holds different content is an error.
func (s State) Set(field Field, value string) (State, error) {
	if cur := s.Get(field); cur != "" && cur != value {
		return s, failure.New(failure.KindInvalidInput, "conversation.set",
			"", fmt.Errorf("field %s already populated", field))
	}
	out := s.Clone()
	switch field {
	case FieldSearchResults:
		out.SearchResults = value
	case FieldAnalysis:
		out.Analysis = value
	case FieldCalculationResults:
		out.CalculationResults = value
	case FieldFinalResponse:
		out.FinalResponse = value
	default:
		return s, fmt.Errorf("unknown field %q", field)
	}
	return out, nil
}

func (s State) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LastUserMessage returns the most recent user-authored message.
func (s State) LastUserMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

func (s State) Completed() bool { return s.CurrentStage == StageCompleted }
