// Package markup converts the small markdown subset agents send to the CMS
// into HTML. Supported: ATX headings, **strong**, *em*, "-"/"*" bullet lists,
// blank-line paragraphs and hard line breaks. Inline HTML passes through.
package markup

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	listRe    = regexp.MustCompile(`^\s*[-*]\s+(.+)$`)
	strongRe  = regexp.MustCompile(`\*\*(.+?)\*\*`)
	emRe      = regexp.MustCompile(`\*(\S(?:.*?\S)?)\*`)
)

// LooksLikeHTML reports whether s should be sent as-is.
func LooksLikeHTML(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "<")
}

// MarkdownToHTML renders md. Empty input yields an empty string.
func MarkdownToHTML(md string) string {
	md = strings.ReplaceAll(md, "\r\n", "\n")
	var (
		out       strings.Builder
		paragraph []string
		items     []string
	)

	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}
		out.WriteString("<p>")
		out.WriteString(strings.Join(paragraph, "<br>"))
		out.WriteString("</p>")
		paragraph = nil
	}
	flushList := func() {
		if len(items) == 0 {
			return
		}
		out.WriteString("<ul>")
		for _, item := range items {
			out.WriteString("<li>")
			out.WriteString(item)
			out.WriteString("</li>")
		}
		out.WriteString("</ul>")
		items = nil
	}

	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushParagraph()
			flushList()
		case headingRe.MatchString(trimmed):
			flushParagraph()
			flushList()
			m := headingRe.FindStringSubmatch(trimmed)
			level := strconv.Itoa(len(m[1]))
			out.WriteString("<h" + level + ">" + inline(m[2]) + "</h" + level + ">")
		case listRe.MatchString(line):
			flushParagraph()
			items = append(items, inline(listRe.FindStringSubmatch(line)[1]))
		default:
			flushList()
			paragraph = append(paragraph, inline(trimmed))
		}
	}
	flushParagraph()
	flushList()
	return out.String()
}

func inline(s string) string {
	s = strongRe.ReplaceAllString(s, "<strong>$1</strong>")
	return emRe.ReplaceAllString(s, "<em>$1</em>")
}
