package workflow

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/golovatskygroup/journey-lens/internal/schema"
	"gopkg.in/yaml.v3"
)

//go:embed scripts.yaml
var builtinScripts []byte

//go:embed scripts.schema.json
var scriptsSchema []byte

// ParseScripts decodes a YAML document mapping component names to
// definitions. The document is checked against the scripts schema before
// decoding, then every definition is validated step by step.
func ParseScripts(data []byte) (map[string]Definition, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse scripts: %w", err)
	}
	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse scripts: %w", err)
	}
	if err := schema.ValidateJSON("workflow_scripts", scriptsSchema, doc); err != nil {
		return nil, err
	}

	var defs map[string]Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse scripts: %w", err)
	}
	for component, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("script %s: %w", component, err)
		}
	}
	return defs, nil
}
