package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const analyzerSystemPrompt = `You are a concise assistant embedded in a patient-journey companion.
Answer in plain language. Summarize the key points of the provided text, call out anything actionable, and do not invent sources.`

// maxAnalysisInputRunes bounds how much text is sent for one analysis.
const maxAnalysisInputRunes = 24_000

// Completer is the subset of Client used by Analyzer.
type Completer interface {
	ChatCompletionText(ctx context.Context, system string, user string) (string, string, error)
}

// Analyzer turns text plus a short context label into model insights.
type Analyzer struct {
	completer Completer
	logger    zerolog.Logger
}

func NewAnalyzer(c Completer, logger zerolog.Logger) *Analyzer {
	return &Analyzer{completer: c, logger: logger}
}

// Prompt builds the user prompt sent for text with an optional context label.
func Prompt(text, contextLabel string) string {
	if strings.TrimSpace(contextLabel) == "" {
		return "Analyze the following text and provide insights:\n\n" + text
	}
	return fmt.Sprintf("Context: %s\n\nAnalyze the following text and provide insights:\n\n%s", contextLabel, text)
}

func (a *Analyzer) Analyze(ctx context.Context, text, contextLabel string) (string, error) {
	text = truncateRunes(text, maxAnalysisInputRunes)
	out, finish, err := a.completer.ChatCompletionText(ctx, analyzerSystemPrompt, Prompt(text, contextLabel))
	if err != nil {
		return "", fmt.Errorf("analyze: %w", err)
	}
	if finish == "length" {
		a.logger.Warn().Int("chars", len(out)).Msg("analysis truncated by max_tokens")
	}
	return out, nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
