// Package geo chains the tools into the two end-to-end flows offered by the
// HTTP front-end and the CLI: analyze (audit + read + Article schema) and
// optimize (analyze + LLM rewrite).
package geo

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/geo-agent/geo-mcp-server/internal/browser"
	"github.com/geo-agent/geo-mcp-server/internal/llm"
	"github.com/geo-agent/geo-mcp-server/internal/search"
	"github.com/geo-agent/geo-mcp-server/internal/tools"
)

const (
	// PreviewLimit caps the markdown handed to callers and to the model.
	PreviewLimit = 2000
	// AuditResults is the source count used by the analyze flow.
	AuditResults = 5

	truncationMarker = "\n...\n(truncated)"
)

var (
	// ErrNothingToAnalyze is returned when neither keyword nor URL is given.
	ErrNothingToAnalyze = errors.New("keyword or url is required")
	// ErrURLRequired is returned by Optimize without a URL.
	ErrURLRequired = errors.New("url is required")
)

// Auditor runs the search audit.
type Auditor interface {
	Audit(ctx context.Context, in tools.SearchAuditInput) (search.Result, error)
}

// Reader loads and extracts a page.
type Reader interface {
	Read(ctx context.Context, in tools.ContentReaderInput) (browser.Page, error)
}

// Rewriter produces the optimized page.
type Rewriter interface {
	Optimize(ctx context.Context, in llm.OptimizeInput) (llm.Optimized, error)
}

// Request selects what to analyze. Either field may be empty, not both.
type Request struct {
	Keyword string `json:"keyword,omitempty"`
	URL     string `json:"url,omitempty"`
}

// AuditSection is the rendered audit plus its raw sources.
type AuditSection struct {
	Content string       `json:"content"`
	Results []search.Hit `json:"results"`
}

// Analysis is the analyze result. A failing step leaves its section empty
// and fills the matching *Error field; the other step still runs.
type Analysis struct {
	Keyword    string           `json:"keyword,omitempty"`
	URL        string           `json:"url,omitempty"`
	Audit      *AuditSection    `json:"audit,omitempty"`
	AuditError string           `json:"auditError,omitempty"`
	Page       *llm.PageSummary `json:"page,omitempty"`
	PageError  string           `json:"pageError,omitempty"`
	SchemaJSON string           `json:"schemaJson,omitempty"`

	pageErr error
}

// Optimization is the optimize result.
type Optimization struct {
	Analysis
	OptimizedHTML string `json:"optimizedHtml"`
	AuditInsights string `json:"auditInsights,omitempty"`
}

// Pipeline runs the flows.
type Pipeline struct {
	auditor  Auditor
	reader   Reader
	rewriter Rewriter
	logger   *logrus.Entry
}

// NewPipeline wires the collaborators.
func NewPipeline(auditor Auditor, reader Reader, rewriter Rewriter, logger *logrus.Entry) *Pipeline {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{auditor: auditor, reader: reader, rewriter: rewriter, logger: logger}
}

// Analyze audits the keyword and reads the URL concurrently.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (Analysis, error) {
	if req.Keyword == "" && req.URL == "" {
		return Analysis{}, ErrNothingToAnalyze
	}
	out := Analysis{Keyword: req.Keyword, URL: req.URL}

	// The steps fail independently: each records its own error and returns
	// nil, so the group only joins them and never cancels the sibling.
	g, gctx := errgroup.WithContext(ctx)
	if req.Keyword != "" {
		g.Go(func() error {
			res, err := p.auditor.Audit(gctx, tools.SearchAuditInput{
				Query:       req.Keyword,
				MaxResults:  AuditResults,
				SearchDepth: search.DepthAdvanced,
			})
			if err != nil {
				p.logger.WithError(err).WithField("keyword", req.Keyword).Warn("audit step failed")
				out.AuditError = err.Error()
				return nil
			}
			out.Audit = &AuditSection{Content: tools.RenderAudit(res), Results: res.Hits}
			return nil
		})
	}
	if req.URL != "" {
		g.Go(func() error {
			page, schemaJSON, err := p.readPage(gctx, req.URL)
			if err != nil {
				p.logger.WithError(err).WithField("url", req.URL).Warn("read step failed")
				out.PageError = err.Error()
				out.pageErr = err
				return nil
			}
			out.Page = &page
			out.SchemaJSON = schemaJSON
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func (p *Pipeline) readPage(ctx context.Context, rawURL string) (llm.PageSummary, string, error) {
	args := tools.Args{"url": rawURL}
	in, err := tools.Coerce(tools.NameContentReader, args)
	if err != nil {
		return llm.PageSummary{}, "", err
	}
	page, err := p.reader.Read(ctx, in.(tools.ContentReaderInput))
	if err != nil {
		return llm.PageSummary{}, "", err
	}

	name := page.Title
	if name == "" {
		name = "Untitled page"
	}
	description := page.MetaDescription
	if description == "" {
		description = "Page summary"
	}
	schemaJSON, err := tools.GenerateSchema(tools.SchemaInput{
		Type:    "Article",
		Context: tools.DefaultSchemaContext,
		Entity:  map[string]any{"name": name, "description": description, "url": rawURL},
	})
	if err != nil {
		return llm.PageSummary{}, "", fmt.Errorf("generate article schema: %w", err)
	}

	return llm.PageSummary{
		Title:           page.Title,
		MetaDescription: page.MetaDescription,
		Headings:        page.Headings,
		MarkdownPreview: Preview(page.Markdown),
	}, schemaJSON, nil
}

// Optimize analyzes and then rewrites the page. The page must be readable;
// a failed audit only removes the audit context from the prompt.
func (p *Pipeline) Optimize(ctx context.Context, req Request) (Optimization, error) {
	if req.URL == "" {
		return Optimization{}, ErrURLRequired
	}
	analysis, err := p.Analyze(ctx, req)
	if err != nil {
		return Optimization{}, err
	}
	if analysis.Page == nil {
		return Optimization{Analysis: analysis}, fmt.Errorf("read page: %w", analysis.pageErr)
	}

	in := llm.OptimizeInput{Keyword: req.Keyword, URL: req.URL, Page: *analysis.Page}
	if analysis.Audit != nil {
		in.AuditSummary = analysis.Audit.Content
	}
	optimized, err := p.rewriter.Optimize(ctx, in)
	if err != nil {
		return Optimization{Analysis: analysis}, fmt.Errorf("optimize: %w", err)
	}
	return Optimization{
		Analysis:      analysis,
		OptimizedHTML: optimized.HTML,
		AuditInsights: optimized.AuditInsights,
	}, nil
}

// Preview truncates markdown to PreviewLimit runes.
func Preview(markdown string) string {
	if utf8.RuneCountInString(markdown) <= PreviewLimit {
		return markdown
	}
	return string([]rune(markdown)[:PreviewLimit]) + truncationMarker
}
