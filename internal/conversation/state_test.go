package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/journey-lens/internal/failure"
)

func TestWithMessageDoesNotMutateCaller(t *testing.T) {
	s := New("hello")
	next := s.WithMessage(RoleAssistant, "hi there")

	assert.Len(t, s.Messages, 1)
	assert.Len(t, next.Messages, 2)
	assert.Equal(t, RoleAssistant, next.Messages[1].Role)
}

func TestCloneIsDeep(t *testing.T) {
	s := New("hello").WithTrace(StageRoute)
	c := s.Clone()
	c.Messages[0].Content = "changed"
	c.Trace[0] = StageError

	assert.Equal(t, "hello", s.Messages[0].Content)
	assert.Equal(t, StageRoute, s.Trace[0])
}

func TestSetIsWriteOnce(t *testing.T) {
	s := New("q")
	s1, err := s.Set(FieldAnalysis, "first")
	require.NoError(t, err)
	assert.Equal(t, "", s.Analysis)
	assert.Equal(t, "first", s1.Analysis)

	// Writing the same content again is allowed.
	_, err = s1.Set(FieldAnalysis, "first")
	require.NoError(t, err)

	_, err = s1.Set(FieldAnalysis, "second")
	require.Error(t, err)
	assert.Equal(t, failure.KindInvalidInput, failure.KindOf(err))
}

func TestLastUserMessage(t *testing.T) {
	s := New("first").WithMessage(RoleAssistant, "ack")

	last, ok := s.LastMessage()
	require.True(t, ok)
	assert.Equal(t, RoleAssistant, last.Role)

	user, ok := s.LastUserMessage()
	require.True(t, ok)
	assert.Equal(t, "first", user.Content)

	_, ok = State{}.LastUserMessage()
	assert.False(t, ok)
}

func TestWithFailureMovesToErrorStage(t *testing.T) {
	f := failure.New(failure.KindMissingInput, "search", "No search query found.", nil)
	s := New("x").WithFailure(f)

	assert.Equal(t, StageError, s.CurrentStage)
	require.NotNil(t, s.Failure)
	assert.Equal(t, "No search query found.", s.Failure.Message)
	assert.Empty(t, s.FinalResponse)
}
