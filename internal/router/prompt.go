package router

import (
	"errors"
	"fmt"

	"github.com/golovatskygroup/journey-lens/internal/calc"
)

const (
	msgInvalidInput   = "Invalid message type received."
	msgNoSearchQuery  = "No search query found."
	msgNoExpression   = "No calculation expression found."
	msgNoContent      = "No content to analyze."
	msgGenericFailure = "An error occurred while processing your request. Please try again."

	msgSearchDone   = "Search completed. Found relevant information. Now analyzing..."
	msgAnalysisDone = "Analysis completed. Preparing response..."

	contextSearch   = "Based on search results"
	contextDirect   = "Direct analysis"
	contextFallback = "Provide a helpful response"
	defaultGreeting = "Hello"

	searchErrorText   = "Search error: Sorry, I couldn't reach the search service right now. Please try again in a moment."
	analysisErrorText = "Analysis error: Sorry, I couldn't analyze that right now. Please try again in a moment."
)

func routeAck(next string) string {
	return fmt.Sprintf("I'll help you with that. Let me %s for you.", next)
}

func calculationDone(result string) string {
	return "Calculation completed: " + result
}

func searchAndAnalysisResponse(analysis, sources string) string {
	return fmt.Sprintf("Based on my search and analysis:\n\n%s\n\n**Sources:**\n%s", analysis, sources)
}

func calculationResponse(result string) string {
	return "**Calculation Result:** " + result
}

// calculationErrorText maps evaluator errors to text a user can act on.
func calculationErrorText(err error) string {
	switch {
	case errors.Is(err, calc.ErrInvalidCharacters):
		return "Calculation error: Invalid characters detected. Only numbers and basic operators (+, -, *, /, parentheses) are allowed."
	case errors.Is(err, calc.ErrNotANumber):
		return "Calculation error: Result is not a valid number."
	case errors.Is(err, calc.ErrEmptyExpression):
		return "Calculation error: There was no expression to calculate."
	default:
		return "Calculation error: Sorry, I couldn't evaluate that expression. Please check it and try again."
	}
}
