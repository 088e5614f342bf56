package router

import "context"

// Searcher returns formatted, human-readable search results for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Evaluator evaluates an arithmetic expression.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string) (string, error)
}

// Analyzer produces insights for text under a short context label.
type Analyzer interface {
	Analyze(ctx context.Context, text, contextLabel string) (string, error)
}

// Services bundles the external collaborators of a Pipeline.
type Services struct {
	Search   Searcher
	Calc     Evaluator
	Analysis Analyzer
}
