package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// FirstCellText parses a table-row fragment and returns the trimmed text of
// its first td or th cell, or "" when the fragment has no cell.
func FirstCellText(fragment string) (string, error) {
	// Row fragments need a table context or the parser discards the tags.
	root, err := html.Parse(strings.NewReader("<table>" + fragment + "</table>"))
	if err != nil {
		return "", err
	}
	cell := findCell(root)
	if cell == nil {
		return "", nil
	}
	var b strings.Builder
	collectText(cell, &b)
	return strings.TrimSpace(b.String()), nil
}

func findCell(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findCell(c); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
