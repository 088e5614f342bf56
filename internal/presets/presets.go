// Package presets holds the built-in journey stage catalog: twelve stages,
// each with its tools, their triggers and a suggested chat prompt.
package presets

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/golovatskygroup/journey-lens/internal/manifest"
	"gopkg.in/yaml.v3"
)

//go:embed stages.yaml
var builtinStages []byte

type stageEntry struct {
	Key                    string `yaml:"key"`
	manifest.StageManifest `yaml:",inline"`
}

// Registry is an ordered, read-only set of stage manifests.
type Registry struct {
	order  []string
	stages map[string]manifest.StageManifest
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry built from the embedded catalog.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Parse(builtinStages)
		if err != nil {
			panic(fmt.Sprintf("presets: embedded catalog is invalid: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// Parse builds a registry from a YAML document with a top-level "stages" list.
func Parse(data []byte) (*Registry, error) {
	var doc struct {
		Stages []stageEntry `yaml:"stages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if len(doc.Stages) == 0 {
		return nil, fmt.Errorf("parse presets: no stages")
	}

	reg := &Registry{stages: make(map[string]manifest.StageManifest, len(doc.Stages))}
	for i, st := range doc.Stages {
		key := strings.TrimSpace(st.Key)
		if key == "" {
			return nil, fmt.Errorf("stage %d: key is required", i)
		}
		if _, dup := reg.stages[key]; dup {
			return nil, fmt.Errorf("stage %q: duplicate key", key)
		}
		for j, tool := range st.Tools {
			if tool.Name == "" || tool.Component == "" {
				return nil, fmt.Errorf("stage %q tool %d: name and component are required", key, j)
			}
			if tool.Metadata == nil {
				st.Tools[j].Metadata = map[string]any{}
			}
		}
		m := st.StageManifest
		m.Stage = key
		reg.order = append(reg.order, key)
		reg.stages[key] = m
	}
	return reg, nil
}

// Load returns the registry named by JOURNEY_LENS_PRESETS_FILE, or Default
// when the variable is unset.
func Load() (*Registry, error) {
	return LoadFile(os.Getenv("JOURNEY_LENS_PRESETS_FILE"))
}

// LoadFile parses the catalog at path, or returns Default for an empty path.
func LoadFile(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	return Parse(data)
}

// Get returns a copy of the manifest for stage.
func (r *Registry) Get(stage string) (manifest.StageManifest, bool) {
	m, ok := r.stages[stage]
	if !ok {
		return manifest.StageManifest{}, false
	}
	m.Tools = append([]manifest.ToolDescriptor(nil), m.Tools...)
	return m, true
}

// Stages returns stage keys in catalog order.
func (r *Registry) Stages() []string {
	return append([]string(nil), r.order...)
}

// Components returns the sorted set of components referenced by any stage.
func (r *Registry) Components() []string {
	seen := map[string]struct{}{}
	for _, m := range r.stages {
		for _, t := range m.Tools {
			seen[t.Component] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Fetch implements manifest.Fetcher. Unknown stages yield no tools.
func (r *Registry) Fetch(_ context.Context, stage string) []manifest.ToolDescriptor {
	m, ok := r.Get(stage)
	if !ok {
		return []manifest.ToolDescriptor{}
	}
	return m.Tools
}
