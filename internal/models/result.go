package models

// SearchResult is a single hit. Text, Chapter and Section are filled from the stored chunk.
type SearchResult struct {
	Key     string  `json:"key"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
	Text    string  `json:"text,omitempty"`
	Chapter string  `json:"chapter,omitempty"`
	Section string  `json:"section,omitempty"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query   string          `json:"query"`
	Metric  string          `json:"metric"`
	Results []*SearchResult `json:"results,omitempty"`
	// Keys is set instead of Results when the query asked for keys only.
	Keys []string `json:"keys,omitempty"`
	// Labels are the labels the matcher returned for the query.
	Labels []Label `json:"labels,omitempty"`
	// Narrowed is true when the search ran over a label-restricted candidate set.
	Narrowed   bool  `json:"narrowed"`
	Candidates int   `json:"candidates"`
	Total      int   `json:"total"`
	QueryTime  int64 `json:"query_time_ms"`
}
