// Package registry matches conversation text against tool triggers.
package registry

import (
	"sort"
	"strings"
	"unicode"

	"github.com/golovatskygroup/journey-lens/internal/manifest"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Match is the tool selected for a conversation and the trigger that selected it.
type Match struct {
	Tool    manifest.ToolDescriptor
	Trigger string
	Index   int
}

// FindTool scans tools in order and, for each, its triggers in order. The
// first trigger whose lower-cased form occurs in the lower-cased conversation
// wins. Empty triggers never match.
func FindTool(tools []manifest.ToolDescriptor, conversation string) (Match, bool) {
	text := strings.ToLower(conversation)
	for i, tool := range tools {
		for _, trigger := range tool.Triggers {
			t := strings.ToLower(trigger)
			if t == "" {
				continue
			}
			if strings.Contains(text, t) {
				return Match{Tool: tool, Trigger: trigger, Index: i}, true
			}
		}
	}
	return Match{}, false
}

// Suggestion is a ranked near-miss for a query.
type Suggestion struct {
	Tool    manifest.ToolDescriptor `json:"tool"`
	Trigger string                  `json:"trigger,omitempty"`
	Score   int                     `json:"score"`
}

// Suggest ranks tools loosely related to query. It never affects activation,
// which stays on exact substring matching; it serves "did you mean" hints
// and catalog search.
func Suggest(tools []manifest.ToolDescriptor, query string, limit int) []Suggestion {
	if limit <= 0 {
		limit = 5
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	words := strings.FieldsFunc(q, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })

	var out []Suggestion
	for _, tool := range tools {
		score, best := 0, ""
		name := strings.ToLower(tool.Name)
		component := strings.ToLower(tool.Component)

		if strings.Contains(name, q) || strings.Contains(component, q) {
			score += 100
		} else if fuzzy.Match(q, name) || fuzzy.Match(q, component) {
			score += 50
		}

		for _, trigger := range tool.Triggers {
			t := strings.ToLower(trigger)
			if s := triggerScore(t, q, words); s > 0 {
				if best == "" {
					best = trigger
				}
				score += s
			}
		}

		if score > 0 {
			out = append(out, Suggestion{Tool: tool, Trigger: best, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func triggerScore(trigger, query string, words []string) int {
	if trigger == "" {
		return 0
	}
	if strings.Contains(query, trigger) {
		return 40
	}
	if strings.Contains(trigger, " ") {
		if fuzzy.Match(trigger, query) {
			return 20
		}
		return 0
	}
	for _, w := range words {
		if len(w) < 4 || len(trigger) < 4 {
			continue
		}
		if fuzzy.LevenshteinDistance(w, trigger) <= maxTypos(trigger) {
			return 30
		}
	}
	return 0
}

func maxTypos(trigger string) int {
	if len(trigger) >= 8 {
		return 2
	}
	return 1
}
