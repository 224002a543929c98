package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/geo-agent/geo-mcp-server/internal/config"
	"github.com/geo-agent/geo-mcp-server/internal/markup"
	"github.com/geo-agent/geo-mcp-server/internal/protocol"
	"github.com/geo-agent/geo-mcp-server/internal/wordpress"
)

// NoFieldsMessage is returned when a cms-bridge call has nothing to change.
const NoFieldsMessage = "No fields provided (title/content/excerpt/meta); no update was performed."

// CMSBridge updates WordPress posts and pages.
type CMSBridge struct {
	cfg    config.Config
	client *http.Client
}

// NewCMSBridge constructs the tool. Credentials are resolved per call.
func NewCMSBridge(cfg config.Config, client *http.Client) *CMSBridge {
	return &CMSBridge{cfg: cfg, client: client}
}

func (t *CMSBridge) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name: NameCMSBridge,
		Description: `Update the body, title, excerpt and meta data of a WordPress post or page through the REST API.

Markdown content is converted to HTML; content starting with "<" is sent as-is.
Requires WORDPRESS_URL, WORDPRESS_USER and WORDPRESS_APP_PASSWORD.`,
		InputSchema: &protocol.JSONSchema{
			Type: "object",
			Properties: map[string]protocol.JSONSchema{
				"postId": {
					Description: "WordPress post or page ID",
					AnyOf:       []protocol.JSONSchema{{Type: "integer"}, {Type: "string"}},
				},
				"postType": {
					Type:        "string",
					Enum:        postTypes,
					Default:     string(DefaultPostType),
					Description: "Resource kind to update",
				},
				"title":   {Type: "string", Description: "New title"},
				"content": {Type: "string", Description: "New body as HTML or markdown"},
				"excerpt": {Type: "string", Description: "New excerpt"},
				"meta": {
					Type:                 "object",
					Description:          "Meta fields such as meta_description (depends on theme/plugins)",
					AdditionalProperties: protocol.JSONSchema{Type: "string"},
				},
			},
			Required: []string{"postId"},
		},
	}
}

func (t *CMSBridge) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, error) {
	args, err := DecodeArgs(NameCMSBridge, raw)
	if err != nil {
		return protocol.CallResult{}, err
	}
	in, err := coerceCMS(args)
	if err != nil {
		return protocol.CallResult{}, err
	}
	post, updated, err := t.Publish(ctx, in)
	if err != nil {
		return protocol.CallResult{}, err
	}
	if !updated {
		return protocol.TextResult(NoFieldsMessage), nil
	}
	return protocol.TextResult(RenderPost(post)), nil
}

// Publish applies in. It reports updated=false, without reading credentials or
// contacting the site, when no field is set.
func (t *CMSBridge) Publish(ctx context.Context, in CMSInput) (wordpress.Post, bool, error) {
	fields := UpdateFields(in)
	if fields.Empty() {
		return wordpress.Post{}, false, nil
	}
	wp, err := t.cfg.WordPress()
	if err != nil {
		return wordpress.Post{}, false, err
	}
	post, err := wordpress.New(wp.URL, wp.User, wp.Password, t.client).Update(ctx, in.PostType, in.PostID, fields)
	if err != nil {
		return wordpress.Post{}, false, err
	}
	return post, true, nil
}

// UpdateFields maps in onto the REST payload, converting markdown content.
func UpdateFields(in CMSInput) wordpress.Fields {
	f := wordpress.Fields{Title: in.Title, Excerpt: in.Excerpt}
	if in.Content != nil {
		content := *in.Content
		if !markup.LooksLikeHTML(content) {
			content = markup.MarkdownToHTML(content)
		}
		f.Content = &content
	}
	if len(in.Meta) > 0 {
		f.Meta = in.Meta
	}
	return f
}

// RenderPost summarizes a successful update.
func RenderPost(p wordpress.Post) string {
	lines := []string{"Update succeeded.", fmt.Sprintf("- ID: %d", p.ID)}
	if p.Title.Rendered != "" {
		lines = append(lines, "- Title: "+p.Title.Rendered)
	}
	if p.Link != "" {
		lines = append(lines, "- Link: "+p.Link)
	}
	return strings.Join(lines, "\n")
}
