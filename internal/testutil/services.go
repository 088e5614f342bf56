// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"errors"
	"sync"
)

// ErrStubFailure is returned by stubs configured to fail.
var ErrStubFailure = errors.New("stub failure")

// Calls records the arguments a stub received.
type Calls struct {
	mu   sync.Mutex
	args [][]string
}

func (c *Calls) record(args ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.args = append(c.args, args)
}

// All returns a copy of every recorded call.
func (c *Calls) All() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]string, len(c.args))
	copy(out, c.args)
	return out
}

func (c *Calls) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.args)
}

// StubSearcher returns Result or Err for every query.
type StubSearcher struct {
	Calls
	Result string
	Err    error
}

func (s *StubSearcher) Search(_ context.Context, query string) (string, error) {
	s.record(query)
	return s.Result, s.Err
}

// StubEvaluator returns Results[expr], or Err when set or the expression is unknown.
type StubEvaluator struct {
	Calls
	Results map[string]string
	Err     error
}

func (s *StubEvaluator) Evaluate(_ context.Context, expr string) (string, error) {
	s.record(expr)
	if s.Err != nil {
		return "", s.Err
	}
	if r, ok := s.Results[expr]; ok {
		return r, nil
	}
	return "", ErrStubFailure
}

// StubAnalyzer echoes its inputs unless Err or Fixed is set.
type StubAnalyzer struct {
	Calls
	Fixed string
	Err   error
}

func (s *StubAnalyzer) Analyze(_ context.Context, text, contextLabel string) (string, error) {
	s.record(text, contextLabel)
	if s.Err != nil {
		return "", s.Err
	}
	if s.Fixed != "" {
		return s.Fixed, nil
	}
	return "insight[" + contextLabel + "]: " + text, nil
}
