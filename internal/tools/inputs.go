package tools

import (
	"fmt"
	"time"

	"github.com/geo-agent/geo-mcp-server/internal/search"
	"github.com/geo-agent/geo-mcp-server/internal/wordpress"
)

// Tool names, in registry order.
const (
	NameSearchAudit     = "ai-search-audit"
	NameContentReader   = "content-reader"
	NameSchemaGenerator = "schema-generator"
	NameCMSBridge       = "cms-bridge"
)

// Bounds and defaults applied during coercion.
const (
	DefaultMaxResults    = 10
	MinMaxResults        = 1
	MaxMaxResults        = 20
	DefaultSearchDepth   = search.DepthAdvanced
	DefaultSchemaContext = "https://schema.org"
	DefaultPostType      = wordpress.KindPost
)

var (
	searchDepths = []string{search.DepthBasic, search.DepthAdvanced}
	postTypes    = []string{string(wordpress.KindPost), string(wordpress.KindPage)}
)

// Input is a validated, fully defaulted tool input. The concrete type
// identifies the tool.
type Input interface {
	ToolName() string
}

// SearchAuditInput drives ai-search-audit.
type SearchAuditInput struct {
	Query       string
	MaxResults  int
	SearchDepth string
}

// ContentReaderInput drives content-reader. WaitForTimeout is zero when unset.
type ContentReaderInput struct {
	URL             string
	WaitForSelector string
	WaitForTimeout  time.Duration
}

// SchemaInput drives schema-generator.
type SchemaInput struct {
	Type    string
	Entity  map[string]any
	Context string
}

// CMSInput drives cms-bridge. Nil pointers mean "leave unchanged".
type CMSInput struct {
	PostID   int
	PostType wordpress.Kind
	Title    *string
	Content  *string
	Excerpt  *string
	Meta     map[string]string
}

func (SearchAuditInput) ToolName() string   { return NameSearchAudit }
func (ContentReaderInput) ToolName() string { return NameContentReader }
func (SchemaInput) ToolName() string        { return NameSchemaGenerator }
func (CMSInput) ToolName() string           { return NameCMSBridge }

// Coerce validates args for the named tool.
func Coerce(tool string, args Args) (Input, error) {
	switch tool {
	case NameSearchAudit:
		return coerceSearchAudit(args)
	case NameContentReader:
		return coerceContentReader(args)
	case NameSchemaGenerator:
		return coerceSchema(args)
	case NameCMSBridge:
		return coerceCMS(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", tool)
	}
}

func coerceSearchAudit(args Args) (SearchAuditInput, error) {
	query, err := args.requiredString(NameSearchAudit, "query")
	if err != nil {
		return SearchAuditInput{}, err
	}
	maxResults, ok, err := args.optionalInt(NameSearchAudit, "maxResults")
	if err != nil {
		return SearchAuditInput{}, err
	}
	if !ok {
		maxResults = DefaultMaxResults
	}
	return SearchAuditInput{
		Query:       query,
		MaxResults:  clamp(maxResults, MinMaxResults, MaxMaxResults),
		SearchDepth: args.enum("searchDepth", searchDepths, DefaultSearchDepth),
	}, nil
}

func coerceContentReader(args Args) (ContentReaderInput, error) {
	raw, err := args.requiredString(NameContentReader, "url")
	if err != nil {
		return ContentReaderInput{}, err
	}
	target, err := absoluteURL(NameContentReader, "url", raw, true)
	if err != nil {
		return ContentReaderInput{}, err
	}
	selector, err := args.optionalString(NameContentReader, "waitForSelector")
	if err != nil {
		return ContentReaderInput{}, err
	}
	ms, _, err := args.optionalInt(NameContentReader, "waitForTimeout")
	if err != nil {
		return ContentReaderInput{}, err
	}

	in := ContentReaderInput{URL: target, WaitForTimeout: time.Duration(max(ms, 0)) * time.Millisecond}
	if selector != nil {
		in.WaitForSelector = *selector
	}
	return in, nil
}

func coerceSchema(args Args) (SchemaInput, error) {
	typ, err := args.requiredString(NameSchemaGenerator, "type")
	if err != nil {
		return SchemaInput{}, err
	}
	entity, err := args.object(NameSchemaGenerator, "entity", true)
	if err != nil {
		return SchemaInput{}, err
	}
	in := SchemaInput{Type: typ, Entity: entity, Context: DefaultSchemaContext}

	ctxURL, err := args.optionalString(NameSchemaGenerator, "context")
	if err != nil {
		return SchemaInput{}, err
	}
	if ctxURL != nil {
		if in.Context, err = absoluteURL(NameSchemaGenerator, "context", *ctxURL, false); err != nil {
			return SchemaInput{}, err
		}
	}
	return in, nil
}

func coerceCMS(args Args) (CMSInput, error) {
	id, err := args.id(NameCMSBridge, "postId")
	if err != nil {
		return CMSInput{}, err
	}
	in := CMSInput{
		PostID:   id,
		PostType: wordpress.Kind(args.enum("postType", postTypes, string(DefaultPostType))),
	}
	if in.Title, err = args.optionalString(NameCMSBridge, "title"); err != nil {
		return CMSInput{}, err
	}
	if in.Content, err = args.optionalString(NameCMSBridge, "content"); err != nil {
		return CMSInput{}, err
	}
	if in.Excerpt, err = args.optionalString(NameCMSBridge, "excerpt"); err != nil {
		return CMSInput{}, err
	}
	if in.Meta, err = args.stringMap(NameCMSBridge, "meta"); err != nil {
		return CMSInput{}, err
	}
	return in, nil
}
