// Package search is a minimal client for the Tavily search API, the backend
// behind the ai-search-audit tool.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/geo-agent/geo-mcp-server/internal/toolerr"
)

// Depth values accepted by the API.
const (
	DepthBasic    = "basic"
	DepthAdvanced = "advanced"
)

// Client calls the Tavily /search endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New returns a client. If httpClient is nil, a default with 30s timeout is used.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: httpClient}
}

// Query is a single search request.
type Query struct {
	Text       string
	MaxResults int
	Depth      string
}

// Hit is one ranked source.
type Hit struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Snippet string   `json:"snippet"`
	Score   *float64 `json:"score,omitempty"`
}

// Result is the ranked list plus the synthesized answer, if any.
type Result struct {
	Answer string `json:"answer,omitempty"`
	Hits   []Hit  `json:"results"`
}

type searchRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string   `json:"title"`
		URL     string   `json:"url"`
		Content string   `json:"content"`
		Score   *float64 `json:"score"`
	} `json:"results"`
}

// Search runs q and returns normalized hits. Non-2xx responses become a
// *toolerr.UpstreamError carrying the status and body.
func (c *Client) Search(ctx context.Context, q Query) (Result, error) {
	payload, err := json.Marshal(searchRequest{
		APIKey:        c.apiKey,
		Query:         q.Text,
		SearchDepth:   q.Depth,
		MaxResults:    q.MaxResults,
		IncludeAnswer: true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call tavily: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return Result{}, toolerr.NewUpstreamError("tavily", resp.StatusCode, body)
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Result{}, fmt.Errorf("decode search response: %w", err)
	}

	out := Result{Answer: strings.TrimSpace(data.Answer), Hits: make([]Hit, 0, len(data.Results))}
	for _, r := range data.Results {
		out.Hits = append(out.Hits, Hit{Title: r.Title, URL: r.URL, Snippet: r.Content, Score: r.Score})
	}
	return out, nil
}
