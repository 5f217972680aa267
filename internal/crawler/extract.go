// internal/crawler/extract.go
package crawler

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipped elements contribute neither text nor links.
var skipped = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Header: true,
	atom.Footer: true,
	atom.Nav:    true,
}

// Extract parses an HTML document and returns its visible text and the raw
// href values of its anchors, in document order. Text is split into lines
// and double-space separated phrases; each phrase is trimmed and empty ones
// are dropped.
func Extract(r io.Reader) (string, []string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", nil, err
	}

	var raw strings.Builder
	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.A {
				for _, attr := range n.Attr {
					if attr.Key == "href" && strings.TrimSpace(attr.Val) != "" {
						links = append(links, strings.TrimSpace(attr.Val))
					}
				}
			}
		case html.TextNode:
			raw.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return normalizeText(raw.String()), links, nil
}

func normalizeText(text string) string {
	var phrases []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				phrases = append(phrases, phrase)
			}
		}
	}
	return strings.Join(phrases, "\n")
}
