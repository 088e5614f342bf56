// Package calc evaluates arithmetic expressions in a sandboxed goja runtime.
package calc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/dop251/goja"
)

var (
	ErrEmptyExpression   = errors.New("empty expression")
	ErrInvalidCharacters = errors.New("invalid characters detected; only numbers and basic operators (+, -, *, /, parentheses) are allowed")
	ErrNotANumber        = errors.New("result is not a valid number")
	ErrEvaluationTimeout = errors.New("evaluation timeout")
	allowedExpressionRe  = regexp.MustCompile(`^[0-9+\-*/.() ]+$`)
	defaultEvalTimeout   = 2 * time.Second
	defaultMaxStackDepth = 64
)

// Config bounds a single evaluation.
type Config struct {
	Timeout       time.Duration `yaml:"timeout"`
	MaxStackDepth int           `yaml:"max_stack_depth"`
}

func DefaultConfig() Config {
	return Config{Timeout: defaultEvalTimeout, MaxStackDepth: defaultMaxStackDepth}
}

// Evaluator evaluates expressions made only of digits, '.', spaces,
// parentheses and + - * /. Anything else is rejected without evaluating a
// sanitized substring.
type Evaluator struct {
	cfg Config
}

func New(cfg Config) *Evaluator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultEvalTimeout
	}
	if cfg.MaxStackDepth <= 0 {
		cfg.MaxStackDepth = defaultMaxStackDepth
	}
	return &Evaluator{cfg: cfg}
}

// Validate reports whether expr may be evaluated.
func Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return ErrEmptyExpression
	}
	if !allowedExpressionRe.MatchString(expr) {
		return ErrInvalidCharacters
	}
	return nil
}

// Evaluate returns the JavaScript string form of the numeric result.
func (e *Evaluator) Evaluate(ctx context.Context, expr string) (string, error) {
	if err := Validate(expr); err != nil {
		return "", err
	}

	// A fresh runtime per call keeps evaluations isolated.
	vm := goja.New()
	vm.SetMaxCallStackSize(e.cfg.MaxStackDepth)

	evalCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	stop := context.AfterFunc(evalCtx, func() { vm.Interrupt("timeout") })
	defer stop()

	val, err := vm.RunString(`"use strict"; (` + expr + `)`)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return "", ErrEvaluationTimeout
		}
		return "", fmt.Errorf("invalid expression: %w", err)
	}

	switch n := val.Export().(type) {
	case int64:
		return val.String(), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "", ErrNotANumber
		}
		return val.String(), nil
	default:
		return "", ErrNotANumber
	}
}
