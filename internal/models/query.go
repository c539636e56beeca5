package models

import (
	"fmt"
	"strings"
)

// SearchQuery is a search request.
type SearchQuery struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit,omitempty"`
	Metric   string `json:"metric,omitempty"`
	KeysOnly bool   `json:"keys_only,omitempty"`
	// Narrow enables label-based narrowing; nil means enabled.
	Narrow *bool `json:"narrow,omitempty"`
}

// Validate trims the query text and rejects an empty query. The metric name is
// normalised to lower case. Limits and metric names are checked by the engine,
// which owns the configured defaults.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	q.Metric = strings.ToLower(strings.TrimSpace(q.Metric))
	return nil
}

// NarrowEnabled reports whether label narrowing should run.
func (q *SearchQuery) NarrowEnabled() bool {
	return q.Narrow == nil || *q.Narrow
}
