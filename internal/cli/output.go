// Package cli provides output formatting and an HTTP client for the shiori command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/server"
	"github.com/hyperjump/shiori/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat returns the format named s.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
}

// WriteSearchResults writes search results to w in the given format.
// Unknown formats are written as text.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		writeSearchResultsCompact(w, response)
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	scope := "all entries"
	if response.Narrowed {
		scope = fmt.Sprintf("%d candidates", response.Candidates)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (%s, searched %s)\n", response.Total, response.QueryTime, response.Metric, scope)
	if len(response.Labels) > 0 {
		names := make([]string, len(response.Labels))
		for i, l := range response.Labels {
			names[i] = l.String()
		}
		fmt.Fprintf(w, "Labels: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintln(w)
	for _, key := range response.Keys {
		fmt.Fprintln(w, key)
	}
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
	fmt.Fprintf(w, "Key: %s\n", result.Key)
	if result.Chapter != "" {
		fmt.Fprintf(w, "Chapter: %s\n", result.Chapter)
	}
	if result.Section != "" {
		fmt.Fprintf(w, "Section: %s\n", result.Section)
	}
	if result.Text != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Text, 200))
	}
	fmt.Fprintln(w)
}

func writeSearchResultsCompact(w io.Writer, response *models.SearchResponse) {
	for _, key := range response.Keys {
		fmt.Fprintln(w, key)
	}
	for _, r := range response.Results {
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", r.Rank, r.Score, r.Key, utils.TruncateWords(r.Text, 12))
	}
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// WriteLabels writes label counts to w, one per line, or as JSON.
func WriteLabels(w io.Writer, labels []models.LabelCount, format SearchOutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, labels)
	}
	for _, l := range labels {
		fmt.Fprintf(w, "%-8s %5d  %s\n", l.Category, l.Count, l.Name)
	}
	return nil
}

// WriteStatus writes engine and catalog status to w.
func WriteStatus(w io.Writer, status *server.StatusResponse, format SearchOutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "entries:            %d   # vectors in the store\n", status.Entries)
	fmt.Fprintf(w, "dimensions:         %d\n", status.Dimensions)
	fmt.Fprintf(w, "labels:             %d   # distinct chapter and section labels\n", status.Labels)
	fmt.Fprintf(w, "narrowing:          %t\n", status.Narrowing)
	if status.Documents > 0 || status.Chunks > 0 {
		fmt.Fprintf(w, "documents:          %d   # documents in the catalog\n", status.Documents)
		fmt.Fprintf(w, "chunks:             %d   # chunks in the catalog\n", status.Chunks)
	}
	if status.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "disk_usage_bytes:   %d\n", status.DiskUsageBytes)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
