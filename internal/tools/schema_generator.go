package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/geo-agent/geo-mcp-server/internal/protocol"
)

// SchemaGenerator builds Schema.org JSON-LD from entity data. It has no
// collaborators.
type SchemaGenerator struct{}

// NewSchemaGenerator constructs the tool.
func NewSchemaGenerator() *SchemaGenerator {
	return &SchemaGenerator{}
}

func (t *SchemaGenerator) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        NameSchemaGenerator,
		Description: "Generate Schema.org JSON-LD structured data from core entity facts (product, price, author, rating, dates) so AI search engines can understand and cite the page.",
		InputSchema: &protocol.JSONSchema{
			Type: "object",
			Properties: map[string]protocol.JSONSchema{
				"type": {Type: "string", Description: "Schema.org type such as Article, Product, FAQPage, HowTo, Organization"},
				"entity": {
					Type:                 "object",
					Description:          "Entity fields such as name, description, url, price, author, datePublished",
					AdditionalProperties: true,
				},
				"context": {Type: "string", Format: "uri", Description: "JSON-LD @context", Default: DefaultSchemaContext},
			},
			Required: []string{"type", "entity"},
		},
	}
}

func (t *SchemaGenerator) Invoke(_ context.Context, raw json.RawMessage) (protocol.CallResult, error) {
	args, err := DecodeArgs(NameSchemaGenerator, raw)
	if err != nil {
		return protocol.CallResult{}, err
	}
	in, err := coerceSchema(args)
	if err != nil {
		return protocol.CallResult{}, err
	}
	doc, err := GenerateSchema(in)
	if err != nil {
		return protocol.CallResult{}, err
	}
	return protocol.TextResult(RenderSchema(doc)), nil
}

// GenerateSchema returns the indented JSON-LD document for in. Keys are
// camelCased; @context and @type come first and the rest are sorted.
func GenerateSchema(in SchemaInput) (string, error) {
	ctxURL := in.Context
	if ctxURL == "" {
		ctxURL = DefaultSchemaContext
	}

	props := normalizeEntity(in.Entity)
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var compact bytes.Buffer
	compact.WriteByte('{')
	if err := writeMember(&compact, "@context", ctxURL); err != nil {
		return "", err
	}
	compact.WriteByte(',')
	if err := writeMember(&compact, "@type", strings.TrimSpace(in.Type)); err != nil {
		return "", err
	}
	for _, k := range keys {
		compact.WriteByte(',')
		if err := writeMember(&compact, k, props[k]); err != nil {
			return "", err
		}
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return "", fmt.Errorf("indent json-ld: %w", err)
	}
	return out.String(), nil
}

// RenderSchema wraps a JSON-LD document for display.
func RenderSchema(doc string) string {
	return "Generated JSON-LD (place inside <script type=\"application/ld+json\">):\n```json\n" + doc + "\n```"
}

// normalizeEntity camelCases keys and drops null values. Source keys are
// visited in sorted order, so when two keys normalize to the same name the
// later one wins deterministically. Entity-supplied @context and @type are
// ignored.
func normalizeEntity(entity map[string]any) map[string]any {
	src := make([]string, 0, len(entity))
	for k := range entity {
		src = append(src, k)
	}
	sort.Strings(src)

	out := make(map[string]any, len(entity))
	for _, k := range src {
		v := entity[k]
		if v == nil {
			continue
		}
		key := CamelKey(k)
		if key == "" || key == "@context" || key == "@type" {
			continue
		}
		out[key] = v
	}
	return out
}

// CamelKey converts snake_case, kebab-case, spaced and PascalCase keys to
// camelCase. Keys starting with @ are JSON-LD keywords and kept verbatim.
func CamelKey(k string) string {
	k = strings.TrimSpace(k)
	if strings.HasPrefix(k, "@") {
		return k
	}
	parts := strings.FieldsFunc(k, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})

	var b strings.Builder
	for i, p := range parts {
		if isUpper(p) {
			p = strings.ToLower(p)
		}
		if i == 0 {
			b.WriteString(lowerFirst(p))
		} else {
			b.WriteString(upperFirst(p))
		}
	}
	return b.String()
}

func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return fmt.Errorf("encode key %q: %w", key, err)
	}
	trimTrailingNewline(buf)
	buf.WriteByte(':')
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("encode value for %q: %w", key, err)
	}
	trimTrailingNewline(buf)
	return nil
}

func trimTrailingNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
