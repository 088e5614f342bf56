package presets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	reg := Default()

	assert.Equal(t, []string{
		"awareness", "diagnosis", "research_compare", "staging_testing",
		"treatment_planning", "insurance_travel", "neoadjuvant_therapy",
		"definitive_treatment", "adjuvant_therapy", "early_recovery",
		"surveillance", "long_term_living",
	}, reg.Stages())

	m, ok := reg.Get("awareness")
	require.True(t, ok)
	assert.Equal(t, "awareness", m.Stage)
	assert.Equal(t, "Stage 1: First Hints & Initial Doctor Visit", m.StageName)
	require.Len(t, m.Tools, 3)
	assert.Equal(t, "SymptomTracker", m.Tools[0].Component)
	assert.Equal(t, []string{"symptom", "feel", "pain", "track", "log"}, m.Tools[0].Triggers)
	assert.NotNil(t, m.Tools[0].Metadata)
	assert.NotEmpty(t, m.ChatPrompt)

	for _, stage := range reg.Stages() {
		m, _ := reg.Get(stage)
		assert.Len(t, m.Tools, 3, stage)
	}
}

func TestComponentsAreUniqueAndSorted(t *testing.T) {
	comps := Default().Components()
	assert.Len(t, comps, 35)
	assert.Contains(t, comps, "SymptomAssessor")
	assert.IsIncreasing(t, comps)
}

func TestFetchUnknownStage(t *testing.T) {
	tools := Default().Fetch(context.Background(), "nope")
	assert.NotNil(t, tools)
	assert.Empty(t, tools)
}

func TestGetReturnsCopy(t *testing.T) {
	reg := Default()
	m, _ := reg.Get("diagnosis")
	m.Tools[0].Name = "changed"

	again, _ := reg.Get("diagnosis")
	assert.Equal(t, "AI Translation Engine", again.Tools[0].Name)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("stages: []"))
	assert.Error(t, err)

	_, err = Parse([]byte("stages:\n  - key: a\n  - key: a\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = Parse([]byte("stages:\n  - key: a\n    tools:\n      - name: x\n"))
	assert.ErrorContains(t, err, "component")
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`stages:
  - key: custom
    stage_name: Custom
    chat_prompt: hi
    tools:
      - name: Tracker
        component: SymptomTracker
        triggers: [ache]
`), 0o600))
	t.Setenv("JOURNEY_LENS_PRESETS_FILE", path)

	reg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"custom"}, reg.Stages())

	t.Setenv("JOURNEY_LENS_PRESETS_FILE", "")
	reg, err = Load()
	require.NoError(t, err)
	assert.Same(t, Default(), reg)
}
