package pages

import "context"

type Result struct {
	Title       string
	URL         string
	Description string
	Engines     []string
}

// Searcher produces the results shown on the search page.
type Searcher interface {
	Search(ctx context.Context, query string, page int) ([]Result, error)
}

// NoResults is the Searcher used when no aggregator is configured.
type NoResults struct{}

func (NoResults) Search(ctx context.Context, query string, page int) ([]Result, error) {
	return nil, ctx.Err()
}
