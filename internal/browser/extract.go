package browser

import (
	"errors"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// mainContentSelector lists the containers tried for the article body; the
// first match in document order wins, else body.
const mainContentSelector = "main, article, [role='main'], #content, .content, .post-content, .entry-content"

// Heading is one h1..h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Page is what content-reader reports about a document.
type Page struct {
	URL             string    `json:"url,omitempty"`
	Title           string    `json:"title"`
	MetaDescription string    `json:"metaDescription"`
	Headings        []Heading `json:"headings"`
	Markdown        string    `json:"markdown"`
	Schemas         []string  `json:"schemas"`
}

// Extract parses a serialized document.
func Extract(html string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}

	page := Page{
		Title:    collapse(doc.Find("title").First().Text()),
		Headings: []Heading{},
		Schemas:  []string{},
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		page.MetaDescription = strings.TrimSpace(desc)
	}

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		page.Headings = append(page.Headings, Heading{
			Level: int(name[1] - '0'),
			Text:  collapse(s.Text()),
		})
	})

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if block := strings.TrimSpace(s.Text()); block != "" {
			page.Schemas = append(page.Schemas, block)
		}
	})

	body := doc.Find(mainContentSelector).First()
	if body.Length() == 0 {
		body = doc.Find("body").First()
	}
	if body.Length() == 0 {
		return Page{}, errors.New("document has no body")
	}

	inner, err := body.Html()
	if err != nil {
		return Page{}, fmt.Errorf("serialize main content: %w", err)
	}
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:   "atx",
		CodeBlockStyle: "fenced",
	})
	markdown, err := converter.ConvertString(inner)
	if err != nil {
		return Page{}, fmt.Errorf("convert to markdown: %w", err)
	}
	page.Markdown = strings.TrimSpace(markdown)

	return page, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
