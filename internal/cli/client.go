package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/server"
)

// Client talks to a running shiori server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Search runs query on the server.
func (c *Client) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	var response models.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", query, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Ingest sends chunks to the server for embedding.
func (c *Client) Ingest(ctx context.Context, chunks []models.Chunk) (*server.IngestResponse, error) {
	var response server.IngestResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chunks", chunks, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Status returns the server status.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	var status server.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Labels returns the server's label counts.
func (c *Client) Labels(ctx context.Context) ([]models.LabelCount, error) {
	var out struct {
		Labels []models.LabelCount `json:"labels"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/labels", nil, &out); err != nil {
		return nil, err
	}
	return out.Labels, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
