// Package htmltext converts merchant-authored HTML (product and bundle
// descriptions) into Markdown for previews and plain text for indexing.
package htmltext

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

var (
	tagPattern        = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote|table|img)[\s>/]`)
	anyTagPattern     = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// containsHTML reports whether s looks like HTML markup.
func containsHTML(s string) bool {
	return tagPattern.MatchString(strings.ToLower(s))
}

// ToMarkdown converts HTML to Markdown. Text without markup, or markup the
// converter rejects, is returned trimmed but otherwise unchanged.
func ToMarkdown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !containsHTML(s) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}

// blockElements get a separating space so words from adjacent blocks do not
// run together.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "td": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// ToPlainText strips markup and entities and collapses whitespace.
func ToPlainText(s string) string {
	if s == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		s = html.UnescapeString(anyTagPattern.ReplaceAllString(s, " "))
		return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteByte(' ')
		}
	}
	walk(doc)

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(b.String(), " "))
}
