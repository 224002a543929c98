package geo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/geo-agent/geo-mcp-server/internal/browser"
	"github.com/geo-agent/geo-mcp-server/internal/llm"
	"github.com/geo-agent/geo-mcp-server/internal/logging"
	"github.com/geo-agent/geo-mcp-server/internal/search"
	"github.com/geo-agent/geo-mcp-server/internal/toolerr"
	"github.com/geo-agent/geo-mcp-server/internal/tools"
)

type fakeAuditor struct {
	res search.Result
	err error
	in  tools.SearchAuditInput
}

func (f *fakeAuditor) Audit(_ context.Context, in tools.SearchAuditInput) (search.Result, error) {
	f.in = in
	return f.res, f.err
}

type fakeReader struct {
	page browser.Page
	err  error
}

func (f *fakeReader) Read(_ context.Context, in tools.ContentReaderInput) (browser.Page, error) {
	if f.err != nil {
		return browser.Page{}, f.err
	}
	p := f.page
	p.URL = in.URL
	return p, nil
}

type fakeRewriter struct {
	in  llm.OptimizeInput
	out llm.Optimized
	err error
}

func (f *fakeRewriter) Optimize(_ context.Context, in llm.OptimizeInput) (llm.Optimized, error) {
	f.in = in
	return f.out, f.err
}

func corgiPage() browser.Page {
	return browser.Page{
		Title:           "Corgi Care",
		MetaDescription: "All about corgis",
		Headings:        []browser.Heading{{Level: 1, Text: "Corgi Care"}},
		Markdown:        "# Corgi Care\n\nShort legs.",
	}
}

func TestAnalyzeRunsBothSteps(t *testing.T) {
	auditor := &fakeAuditor{res: search.Result{Answer: "Walk them.", Hits: []search.Hit{{Title: "Guide", URL: "https://a"}}}}
	p := NewPipeline(auditor, &fakeReader{page: corgiPage()}, &fakeRewriter{}, logging.Discard())

	out, err := p.Analyze(context.Background(), Request{Keyword: "corgi care", URL: "https://example.com/corgi"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if auditor.in.MaxResults != AuditResults || auditor.in.SearchDepth != "advanced" {
		t.Fatalf("unexpected audit input %+v", auditor.in)
	}
	if out.Audit == nil || !strings.Contains(out.Audit.Content, "## AI Summary") || len(out.Audit.Results) != 1 {
		t.Fatalf("unexpected audit section %+v", out.Audit)
	}
	if out.Page == nil || out.Page.Title != "Corgi Care" || out.Page.MarkdownPreview != "# Corgi Care\n\nShort legs." {
		t.Fatalf("unexpected page section %+v", out.Page)
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(out.SchemaJSON), &schema); err != nil {
		t.Fatalf("schema is not json: %v", err)
	}
	if schema["@type"] != "Article" || schema["name"] != "Corgi Care" || schema["url"] != "https://example.com/corgi" {
		t.Fatalf("unexpected schema %v", schema)
	}
}

func TestAnalyzeRecordsStepErrors(t *testing.T) {
	p := NewPipeline(
		&fakeAuditor{err: &toolerr.ConfigError{Key: "TAVILY_API_KEY"}},
		&fakeReader{err: errors.New("navigation timeout")},
		&fakeRewriter{},
		logging.Discard(),
	)
	out, err := p.Analyze(context.Background(), Request{Keyword: "k", URL: "https://example.com"})
	if err != nil {
		t.Fatalf("step failures must not fail the analysis: %v", err)
	}
	if out.Audit != nil || !strings.Contains(out.AuditError, "TAVILY_API_KEY") {
		t.Fatalf("unexpected audit outcome %+v / %q", out.Audit, out.AuditError)
	}
	if out.Page != nil || out.PageError != "navigation timeout" {
		t.Fatalf("unexpected page outcome %+v / %q", out.Page, out.PageError)
	}
}

func TestAnalyzeDefaultsSchemaFields(t *testing.T) {
	p := NewPipeline(&fakeAuditor{}, &fakeReader{page: browser.Page{}}, &fakeRewriter{}, logging.Discard())
	out, err := p.Analyze(context.Background(), Request{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out.SchemaJSON, `"name": "Untitled page"`) || !strings.Contains(out.SchemaJSON, `"description": "Page summary"`) {
		t.Fatalf("unexpected schema %s", out.SchemaJSON)
	}
}

func TestAnalyzeValidatesRequest(t *testing.T) {
	p := NewPipeline(&fakeAuditor{}, &fakeReader{}, &fakeRewriter{}, logging.Discard())
	if _, err := p.Analyze(context.Background(), Request{}); !errors.Is(err, ErrNothingToAnalyze) {
		t.Fatalf("expected ErrNothingToAnalyze, got %v", err)
	}
	out, err := p.Analyze(context.Background(), Request{URL: "not-a-url"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out.PageError, "valid URL") {
		t.Fatalf("expected url validation error, got %q", out.PageError)
	}
}

func TestOptimize(t *testing.T) {
	rw := &fakeRewriter{out: llm.Optimized{HTML: "<html/>", AuditInsights: "- stats"}}
	p := NewPipeline(&fakeAuditor{res: search.Result{Answer: "A"}}, &fakeReader{page: corgiPage()}, rw, logging.Discard())

	out, err := p.Optimize(context.Background(), Request{Keyword: "corgi", URL: "https://example.com/corgi"})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if out.OptimizedHTML != "<html/>" || out.AuditInsights != "- stats" {
		t.Fatalf("unexpected optimization %+v", out)
	}
	if rw.in.Keyword != "corgi" || rw.in.Page.Title != "Corgi Care" || !strings.Contains(rw.in.AuditSummary, "## AI Summary\nA") {
		t.Fatalf("unexpected rewrite input %+v", rw.in)
	}
}

func TestOptimizeNeedsPage(t *testing.T) {
	p := NewPipeline(&fakeAuditor{}, &fakeReader{err: errors.New("blocked")}, &fakeRewriter{}, logging.Discard())
	if _, err := p.Optimize(context.Background(), Request{URL: "https://example.com"}); err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Fatalf("expected read failure, got %v", err)
	}
	if _, err := p.Optimize(context.Background(), Request{Keyword: "only"}); err == nil {
		t.Fatalf("expected url requirement")
	}
}

func TestPreview(t *testing.T) {
	short := strings.Repeat("a", PreviewLimit)
	if Preview(short) != short {
		t.Fatalf("text at the limit must not be truncated")
	}
	long := strings.Repeat("é", PreviewLimit+10)
	got := Preview(long)
	if !strings.HasSuffix(got, "\n...\n(truncated)") {
		t.Fatalf("missing truncation marker")
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(got, "\n...\n(truncated)")); n != PreviewLimit {
		t.Fatalf("expected %d runes, got %d", PreviewLimit, n)
	}
}

func TestOptimizeKeepsPageErrorType(t *testing.T) {
	p := NewPipeline(&fakeAuditor{}, &fakeReader{}, &fakeRewriter{}, logging.Discard())
	_, err := p.Optimize(context.Background(), Request{URL: "not-a-url"})
	var valErr *toolerr.ValidationError
	if !errors.As(err, &valErr) || valErr.Field != "url" {
		t.Fatalf("expected wrapped validation error, got %v", err)
	}

	cfgReader := &fakeReader{err: &toolerr.ConfigError{Key: "GEO_CHROME_PATH"}}
	p = NewPipeline(&fakeAuditor{}, cfgReader, &fakeRewriter{}, logging.Discard())
	_, err = p.Optimize(context.Background(), Request{URL: "https://example.com"})
	var cfgErr *toolerr.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected wrapped config error, got %v", err)
	}
}

func TestAnalyzeReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPipeline(&fakeAuditor{}, &fakeReader{}, &fakeRewriter{}, logging.Discard())
	if _, err := p.Analyze(ctx, Request{URL: "https://example.com"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
