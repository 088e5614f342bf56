package router

import (
	"regexp"
	"strings"

	"github.com/golovatskygroup/journey-lens/internal/conversation"
)

var (
	searchKeywords = []string{"search", "find", "look up"}
	calcKeywords   = []string{"calculate", "math"}

	numericOperatorRe = regexp.MustCompile(`[\d+\-*/]`)
	expressionRe      = regexp.MustCompile(`[0-9+\-*/.() ]+`)
)

// Classify picks the stage that follows route for an utterance.
// Search intent wins over calculation intent, even when digits are present.
func Classify(utterance string) conversation.Stage {
	lower := strings.ToLower(utterance)
	if containsAny(lower, searchKeywords) {
		return conversation.StageSearch
	}
	if containsAny(lower, calcKeywords) || numericOperatorRe.MatchString(utterance) {
		return conversation.StageCalculate
	}
	return conversation.StageAnalyze
}

// ExtractExpression returns the longest run of arithmetic characters in
// utterance, trimmed. It falls back to the whole utterance when no run has
// any content.
func ExtractExpression(utterance string) string {
	best := ""
	for _, m := range expressionRe.FindAllString(utterance, -1) {
		if t := strings.TrimSpace(m); len(t) > len(best) {
			best = t
		}
	}
	if best == "" {
		return utterance
	}
	return best
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
