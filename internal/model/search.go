package model

import "time"

// SearchRecord logs one executed external search. Append-only; the raw
// response is kept opaque for debugging and provenance.
type SearchRecord struct {
	ID           int64          `json:"id"`
	Query        string         `json:"query"`
	ResultsCount int            `json:"results_count"`
	RawResponse  map[string]any `json:"raw_response,omitempty"`
	SearchedAt   time.Time      `json:"searched_at"`
}
