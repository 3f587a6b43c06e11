// Package survey drives the resilient fetcher over a list of targets and
// persists what came back. Targets are processed strictly one at a time;
// the fetch layer owns all retry and backoff behavior.
package survey

import (
	"net/http"
	"time"
)

// Target is one page to fetch: a URL plus its query parameters.
type Target struct {
	URL    string
	Params map[string]string
}

// PageRecord is persisted for each successfully fetched page.
type PageRecord struct {
	ID          string
	SurveyID    string
	URL         string
	StatusCode  int
	FetchedAt   time.Time
	DurationMs  int64
	ContentHash string
	Headers     http.Header
	BlobURI     string
}

// Result summarizes one survey run. Skipped counts targets whose fetch
// exhausted every attempt; Failed counts persistence problems.
type Result struct {
	SurveyID string
	Fetched  int
	Skipped  int
	Failed   int
}
