// Package manifest fetches the tool catalog of a journey stage.
package manifest

import "context"

// ToolDescriptor is one activatable tool of a stage.
type ToolDescriptor struct {
	Name      string         `json:"name" yaml:"name"`
	Component string         `json:"component" yaml:"component"`
	Triggers  []string       `json:"triggers" yaml:"triggers"`
	Metadata  map[string]any `json:"metadata" yaml:"metadata"`
}

// StageManifest is the body served for GET /journey/{stageId}.
type StageManifest struct {
	Stage      string           `json:"stage" yaml:"-"`
	StageName  string           `json:"stage_name" yaml:"stage_name"`
	Tools      []ToolDescriptor `json:"tools" yaml:"tools"`
	ChatPrompt string           `json:"chat_prompt" yaml:"chat_prompt"`
}

// Fetcher returns the tools of a stage. Implementations return an empty
// slice, never an error, when the catalog cannot be obtained.
type Fetcher interface {
	Fetch(ctx context.Context, stage string) []ToolDescriptor
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, stage string) []ToolDescriptor

func (f FetcherFunc) Fetch(ctx context.Context, stage string) []ToolDescriptor {
	return f(ctx, stage)
}
