package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/geo-agent/geo-mcp-server/internal/config"
	"github.com/geo-agent/geo-mcp-server/internal/protocol"
	"github.com/geo-agent/geo-mcp-server/internal/search"
)

// SearchAudit runs a query through the Tavily API to show what AI search
// engines currently cite.
type SearchAudit struct {
	cfg    config.Config
	client *http.Client
}

// NewSearchAudit constructs the tool. Credentials are resolved per call.
func NewSearchAudit(cfg config.Config, client *http.Client) *SearchAudit {
	return &SearchAudit{cfg: cfg, client: client}
}

func (t *SearchAudit) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name: NameSearchAudit,
		Description: `Simulate how AI search engines (Perplexity, SearchGPT) answer a query.

Returns the synthesized answer plus the cited sources with URL, relevance score and snippet.
Use it to audit current GEO visibility for a keyword and compare competitors.`,
		InputSchema: &protocol.JSONSchema{
			Type: "object",
			Properties: map[string]protocol.JSONSchema{
				"query": {Type: "string", Description: "Target keyword or natural-language query"},
				"maxResults": {
					Type:        "integer",
					Description: "Maximum number of sources to return",
					Minimum:     intPtr(MinMaxResults),
					Maximum:     intPtr(MaxMaxResults),
					Default:     DefaultMaxResults,
				},
				"searchDepth": {
					Type:        "string",
					Description: "Search depth",
					Enum:        searchDepths,
					Default:     DefaultSearchDepth,
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *SearchAudit) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
	args, err := DecodeArgs(NameSearchAudit, raw)
	if err != nil {
		return protocol.CallResult{}, err
	}
	in, err := coerceSearchAudit(args)
	if err != nil {
		return protocol.CallResult{}, err
	}
	result, err := t.Audit(ctx, in)
	if err != nil {
		return protocol.CallResult{}, err
	}
	return protocol.TextResult(RenderAudit(result)), nil
}

// Audit runs the search for a validated input.
func (t *SearchAudit) Audit(ctx context.Context, in SearchAuditInput) (search.Result, error) {
	tv, err := t.cfg.Tavily()
	if err != nil {
		return search.Result{}, err
	}
	return search.New(tv.BaseURL, tv.APIKey, t.client).Search(ctx, search.Query{
		Text:       in.Query,
		MaxResults: in.MaxResults,
		Depth:      in.SearchDepth,
	})
}

// RenderAudit formats a search result as markdown.
func RenderAudit(r search.Result) string {
	var lines []string
	if r.Answer != "" {
		lines = append(lines, "## AI Summary", r.Answer, "")
	}
	lines = append(lines, "## Cited Sources", "")
	for i, hit := range r.Hits {
		lines = append(lines, fmt.Sprintf("### %d. %s", i+1, hit.Title))
		lines = append(lines, "- URL: "+hit.URL)
		if hit.Score != nil {
			lines = append(lines, "- Relevance: "+strconv.FormatFloat(*hit.Score, 'f', -1, 64))
		}
		lines = append(lines, "- Snippet: "+hit.Snippet, "")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func intPtr(v int) *int { return &v }
