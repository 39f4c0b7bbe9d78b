// Package summarizer turns URLs into short text summaries via an external
// generative-AI service.
package summarizer

import "context"

// Summarizer produces a summary for the page behind a URL.
type Summarizer interface {
	Summarize(ctx context.Context, url string) (string, error)
}
