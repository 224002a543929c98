package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/geo-agent/geo-mcp-server/internal/browser"
	"github.com/geo-agent/geo-mcp-server/internal/protocol"
)

// ContentReader renders a page in a headless browser and reports its
// structure for GEO diagnosis.
type ContentReader struct {
	renderer browser.Renderer
}

// NewContentReader constructs the tool around r.
func NewContentReader(r browser.Renderer) *ContentReader {
	return &ContentReader{renderer: r}
}

func (t *ContentReader) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        NameContentReader,
		Description: "Load a web page in a headless browser and extract its markdown body, heading outline (H1-H6) and embedded JSON-LD schema for GEO diagnosis and comparison.",
		InputSchema: &protocol.JSONSchema{
			Type: "object",
			Properties: map[string]protocol.JSONSchema{
				"url":             {Type: "string", Format: "uri", Description: "Page URL to read"},
				"waitForSelector": {Type: "string", Description: "CSS selector to wait for before reading (for client-rendered pages)"},
				"waitForTimeout": {
					Type:        "integer",
					Minimum:     intPtr(0),
					Description: "Milliseconds to wait: the selector timeout when waitForSelector is set (default 10000), otherwise a fixed delay",
				},
			},
			Required: []string{"url"},
		},
	}
}

func (t *ContentReader) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
	args, err := DecodeArgs(NameContentReader, raw)
	if err != nil {
		return protocol.CallResult{}, err
	}
	in, err := coerceContentReader(args)
	if err != nil {
		return protocol.CallResult{}, err
	}
	page, err := t.Read(ctx, in)
	if err != nil {
		return protocol.CallResult{}, err
	}
	return protocol.TextResult(RenderPage(page)), nil
}

// Read renders and extracts the page for a validated input.
func (t *ContentReader) Read(ctx context.Context, in ContentReaderInput) (browser.Page, error) {
	rendered, err := t.renderer.Render(ctx, in.URL, browser.Wait{
		Selector: in.WaitForSelector,
		Timeout:  in.WaitForTimeout,
	})
	if err != nil {
		return browser.Page{}, err
	}
	page, err := browser.Extract(rendered.HTML)
	if err != nil {
		return browser.Page{}, err
	}
	page.URL = rendered.URL
	if page.URL == "" {
		page.URL = in.URL
	}
	return page, nil
}

// RenderPage formats an extracted page as markdown.
func RenderPage(p browser.Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	if p.MetaDescription != "" {
		fmt.Fprintf(&b, "Meta Description: %s\n\n", p.MetaDescription)
	}
	b.WriteString("## Heading Outline\n\n")
	for _, h := range p.Headings {
		fmt.Fprintf(&b, "%s %s\n", strings.Repeat("#", h.Level), h.Text)
	}
	b.WriteString("\n## Body (Markdown)\n\n")
	b.WriteString(p.Markdown)
	b.WriteString("\n")
	if len(p.Schemas) > 0 {
		b.WriteString("\n## Existing JSON-LD Schema\n")
		for i, s := range p.Schemas {
			fmt.Fprintf(&b, "\n### Schema %d\n```json\n%s\n```\n", i+1, s)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
