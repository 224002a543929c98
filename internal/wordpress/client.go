// Package wordpress wraps the subset of the WordPress REST API used to update
// posts and pages in place.
package wordpress

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

// Kind selects the REST collection.
type Kind string

const (
	KindPost Kind = "post"
	KindPage Kind = "page"
)

func (k Kind) collection() string {
	if k == KindPage {
		return "pages"
	}
	return "posts"
}

// Client authenticates with an application password.
type Client struct {
	baseURL  string
	user     string
	password string
	http     *http.Client
}

// New returns a client for the site at siteURL.
func New(siteURL, user, password string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimRight(siteURL, "/") + "/wp-json/wp/v2",
		user:     user,
		password: password,
		http:     httpClient,
	}
}

// Fields lists what to change. Nil pointers and an empty Meta are left untouched.
type Fields struct {
	Title   *string           `json:"title,omitempty"`
	Content *string           `json:"content,omitempty"`
	Excerpt *string           `json:"excerpt,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Empty reports whether no field would be sent.
func (f Fields) Empty() bool {
	return f.Title == nil && f.Content == nil && f.Excerpt == nil && len(f.Meta) == 0
}

// Post is the part of the REST response callers report back.
type Post struct {
	ID    int `json:"id"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Link string `json:"link"`
}

// Update posts fields to the resource identified by kind and id.
func (c *Client) Update(ctx context.Context, kind Kind, id int, fields Fields) (Post, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return Post{}, fmt.Errorf("encode update: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%d", c.baseURL, kind.collection(), id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Post{}, fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return Post{}, fmt.Errorf("call wordpress: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return Post{}, toolerr.NewUpstreamError("wordpress", resp.StatusCode, raw)
	}

	var post Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return Post{}, fmt.Errorf("decode wordpress response: %w", err)
	}
	return post, nil
}
