package render

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// blankRunRegex matches runs of three or more newlines.
var blankRunRegex = regexp.MustCompile(`\n{3,}`)

// Flatten renders a sanitized markup fragment as plain text. Text nodes
// are emitted in document order, line breaks and block-level elements
// become newlines, and images become a bracketed placeholder holding
// their alt text or source. Runs of blank lines collapse to one.
func Flatten(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}

	var sb strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			case "br":
				sb.WriteString("\n")
			case "img":
				writeImagePlaceholder(&sb, n)
			}
		case html.TextNode:
			sb.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlockElement(n.Data) {
			sb.WriteString("\n")
		}
	}
	walk(doc)

	return collapseBlankLines(sb.String())
}

// writeImagePlaceholder emits a text stand-in for one image.
func writeImagePlaceholder(sb *strings.Builder, n *html.Node) {
	if alt := getAttr(n, "alt"); alt != "" {
		sb.WriteString("[image: " + alt + "]")
		return
	}
	if src := getAttr(n, "src"); src != "" {
		sb.WriteString("[image: " + src + "]")
	}
}

// getAttr returns the value of the named attribute, or empty string.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// isBlockElement reports whether the element ends a line of text.
func isBlockElement(name string) bool {
	switch name {
	case "p", "div", "tr", "table", "li", "ul", "ol",
		"blockquote", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

// collapseBlankLines trims trailing whitespace per line and squeezes
// blank-line runs down to a single blank line.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	out := strings.Join(lines, "\n")
	out = blankRunRegex.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
