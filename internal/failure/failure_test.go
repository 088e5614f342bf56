package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	base := New(KindManifestUnavailable, "orchestrator.activate", "no tools", errors.New("dial tcp: refused"))
	wrapped := fmt.Errorf("outer: %w", base)

	assert.Equal(t, KindManifestUnavailable, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorStringPrefersCause(t *testing.T) {
	e := New(KindServiceFailure, "search", "Search is unavailable.", errors.New("timeout"))
	assert.Equal(t, "search: service_failure: timeout", e.Error())

	e2 := New(KindMissingInput, "", "No user message.", nil)
	assert.Equal(t, "missing_input: No user message.", e2.Error())
}

func TestUnwrapAndUserMessage(t *testing.T) {
	cause := errors.New("boom")
	e := New(KindUnresolvedWorkflow, "resolve", "Sorry, that tool is unavailable.", cause)

	assert.ErrorIs(t, e, cause)
	assert.Equal(t, "Sorry, that tool is unavailable.", UserMessage(e, "fallback"))
	assert.Equal(t, "fallback", UserMessage(cause, "fallback"))
}
