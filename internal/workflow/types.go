// Package workflow defines the UI action scripts played when a tool is
// activated, and the registry resolving a component name to its script.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ActionType is one command of the UI sink vocabulary.
type ActionType string

const (
	ActionRevealTool     ActionType = "reveal_tool"
	ActionUpdateGuidance ActionType = "update_guidance"
	ActionSetField       ActionType = "set_field"
	ActionAppendToList   ActionType = "append_to_list"
)

// ActionTypes lists the vocabulary in declaration order.
func ActionTypes() []ActionType {
	return []ActionType{ActionRevealTool, ActionUpdateGuidance, ActionSetField, ActionAppendToList}
}

func (t ActionType) Known() bool {
	switch t {
	case ActionRevealTool, ActionUpdateGuidance, ActionSetField, ActionAppendToList:
		return true
	default:
		return false
	}
}

// ActionData is the payload of a step. Which fields are required depends on
// the action type; see ActionStep.Validate.
type ActionData struct {
	Tool  string `json:"tool,omitempty" yaml:"tool,omitempty"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
	List  string `json:"list,omitempty" yaml:"list,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// ActionStep is dispatched Delay milliseconds after the previous step's
// dispatch returned.
type ActionStep struct {
	Type  ActionType `json:"type" yaml:"type"`
	Data  ActionData `json:"data" yaml:"data"`
	Delay int        `json:"delay" yaml:"delay"`
}

var (
	ErrUnknownActionType = errors.New("unknown action type")
	ErrMissingActionData = errors.New("missing action data")
	ErrNegativeDelay     = errors.New("negative delay")
)

// Validate checks the step's type and the data fields that type requires.
func (s ActionStep) Validate() error {
	if s.Delay < 0 {
		return fmt.Errorf("%s: %w: %d", s.Type, ErrNegativeDelay, s.Delay)
	}
	missing := func(name string) error {
		return fmt.Errorf("%s: %w: %s", s.Type, ErrMissingActionData, name)
	}
	switch s.Type {
	case ActionRevealTool:
		if strings.TrimSpace(s.Data.Tool) == "" {
			return missing("tool")
		}
	case ActionUpdateGuidance:
		if strings.TrimSpace(s.Data.Text) == "" {
			return missing("text")
		}
	case ActionSetField:
		if strings.TrimSpace(s.Data.Field) == "" {
			return missing("field")
		}
	case ActionAppendToList:
		if strings.TrimSpace(s.Data.List) == "" {
			return missing("list")
		}
		if s.Data.Value == "" {
			return missing("value")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownActionType, s.Type)
	}
	return nil
}

// Definition is a named, ordered list of steps.
type Definition struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Actions     []ActionStep `json:"actions" yaml:"actions"`
}

// Validate checks every step and reports the first invalid one by index.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("workflow: empty name")
	}
	if len(d.Actions) == 0 {
		return fmt.Errorf("workflow %q: no actions", d.Name)
	}
	for i, step := range d.Actions {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("workflow %q: step %d: %w", d.Name, i, err)
		}
	}
	return nil
}

// TotalDelay is the sum of all step delays in milliseconds.
func (d Definition) TotalDelay() int {
	total := 0
	for _, s := range d.Actions {
		total += s.Delay
	}
	return total
}
