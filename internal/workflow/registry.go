package workflow

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnregistered is returned by Resolve for a component with no script.
var ErrUnregistered = errors.New("workflow: unregistered component")

// Factory builds a definition for one activation. Static scripts ignore the
// conversation; dynamic ones derive their steps from it.
type Factory func(conversation string) (Definition, error)

// Static returns a factory that always yields a copy of def.
func Static(def Definition) Factory {
	return func(string) (Definition, error) {
		return def.clone(), nil
	}
}

// Registry maps component names to workflow factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the built-in registry: the embedded static scripts plus
// the dynamic SymptomTracker.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Builtin()
		if err != nil {
			panic(fmt.Sprintf("workflow: embedded scripts are invalid: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// Builtin builds a fresh registry from the embedded scripts.
func Builtin() (*Registry, error) {
	defs, err := ParseScripts(builtinScripts)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for component, def := range defs {
		reg.Register(component, Static(def))
	}
	reg.Register(SymptomTrackerComponent, SymptomTracker)
	return reg, nil
}

// Register binds component to f, replacing any previous binding.
func (r *Registry) Register(component string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[component] = f
}

// Resolve builds the workflow of component for conversation. The returned
// definition is validated before it is handed out.
func (r *Registry) Resolve(component, conversation string) (Definition, error) {
	r.mu.RLock()
	f, ok := r.factories[component]
	r.mu.RUnlock()
	if !ok || f == nil {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnregistered, component)
	}
	def, err := f(conversation)
	if err != nil {
		return Definition{}, fmt.Errorf("build workflow for %s: %w", component, err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Components returns the registered component names, sorted.
func (r *Registry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Missing returns the components in want that have no registered factory,
// in the order given.
func (r *Registry) Missing(want []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, name := range want {
		if _, ok := r.factories[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func (d Definition) clone() Definition {
	out := d
	out.Actions = append([]ActionStep(nil), d.Actions...)
	return out
}
