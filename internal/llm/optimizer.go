package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/geo-agent/geo-mcp-server/internal/browser"
)

// EmptyReply stands in for the HTML when the model returns nothing.
const EmptyReply = "<!-- model returned no content -->"

var (
	insightsRe = regexp.MustCompile(`(?is)\[AI_AUDIT_INSIGHTS\](.*?)\[/AI_AUDIT_INSIGHTS\]`)
	htmlRe     = regexp.MustCompile(`(?is)\[OPTIMIZED_HTML\](.*?)\[/OPTIMIZED_HTML\]`)
)

// Completer is the slice of Client the optimizer needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// PageSummary is the parsed page handed to the model.
type PageSummary struct {
	Title           string            `json:"title"`
	MetaDescription string            `json:"metaDescription"`
	Headings        []browser.Heading `json:"headings"`
	MarkdownPreview string            `json:"markdownPreview"`
}

// OptimizeInput is everything the rewrite is based on.
type OptimizeInput struct {
	Keyword      string      `json:"keyword,omitempty"`
	URL          string      `json:"url,omitempty"`
	Page         PageSummary `json:"page"`
	AuditSummary string      `json:"auditSummary,omitempty"`
}

// Optimized is the parsed model output.
type Optimized struct {
	HTML          string `json:"optimizedHtml"`
	AuditInsights string `json:"auditInsights,omitempty"`
}

// Optimizer rewrites a page for AI search visibility.
type Optimizer struct {
	llm Completer
}

// NewOptimizer wraps c.
func NewOptimizer(c Completer) *Optimizer {
	return &Optimizer{llm: c}
}

// Optimize asks the model for a rewrite and splits the reply into sections.
func (o *Optimizer) Optimize(ctx context.Context, in OptimizeInput) (Optimized, error) {
	payload, err := json.MarshalIndent(userPayload{
		Keyword:      nullable(in.Keyword),
		URL:          nullable(in.URL),
		AuditSummary: nullable(in.AuditSummary),
		Page:         in.Page,
	}, "", "  ")
	if err != nil {
		return Optimized{}, fmt.Errorf("encode page payload: %w", err)
	}

	raw, err := o.llm.Complete(ctx, StrategyPrompt+optimizerInstructions, optimizerUserPreamble+string(payload))
	if err != nil {
		return Optimized{}, err
	}
	return ParseOptimized(raw), nil
}

// ParseOptimized extracts the delimited sections. Without an
// [OPTIMIZED_HTML] pair the whole reply is taken as the HTML.
func ParseOptimized(raw string) Optimized {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = EmptyReply
	}

	out := Optimized{HTML: raw}
	if m := insightsRe.FindStringSubmatch(raw); m != nil {
		out.AuditInsights = strings.TrimSpace(m[1])
	}
	if m := htmlRe.FindStringSubmatch(raw); m != nil {
		out.HTML = strings.TrimSpace(m[1])
	}
	return out
}

// userPayload keeps absent strings as explicit nulls for the model.
type userPayload struct {
	Keyword      *string     `json:"keyword"`
	URL          *string     `json:"url"`
	AuditSummary *string     `json:"auditSummary"`
	Page         PageSummary `json:"page"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
