package blocks

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Split helpers for oversized blocks. Each rebuilds well-formed fragments so
// that no page boundary ever leaves a dangling open tag.

// ListParts extracts the list tag ("ul" or "ol") and the rendered <li>
// fragments of a list block, in document order.
func ListParts(src string) (tag string, items []string, err error) {
	list := findFirst(ParseFragment(src), "ul", "ol")
	if list == nil {
		return "", nil, fmt.Errorf("no list element in block")
	}
	for _, li := range findAll(list, "li") {
		items = append(items, Render(li))
	}
	return list.Data, items, nil
}

// BuildList reassembles a run of list items into a closed list fragment.
// start is the 1-based position of the first item in the original list; it is
// carried as an ol start attribute so numbering survives the split.
func BuildList(tag string, items []string, start int) string {
	var sb strings.Builder
	if tag == "ol" && start > 1 {
		fmt.Fprintf(&sb, `<ol start="%d">`, start)
	} else {
		sb.WriteString("<" + tag + ">")
	}
	for _, it := range items {
		sb.WriteString(it)
	}
	sb.WriteString("</" + tag + ">")
	return sb.String()
}

// TableRows extracts the rendered <tr> fragments of a table block, in
// document order.
func TableRows(src string) ([]string, error) {
	table := findFirst(ParseFragment(src), "table")
	if table == nil {
		return nil, fmt.Errorf("no table element in block")
	}
	var rows []string
	for _, tr := range findAll(table, "tr") {
		rows = append(rows, Render(tr))
	}
	return rows, nil
}

// BuildTable reassembles a run of rows into a closed table fragment.
func BuildTable(rows []string) string {
	var sb strings.Builder
	sb.WriteString("<table>")
	for _, r := range rows {
		sb.WriteString(r)
	}
	sb.WriteString("</table>")
	return sb.String()
}

// Words returns the wrapping tag and the whitespace-separated words of a
// text block, for the word-level split fallback.
func Words(src string) (tag string, words []string) {
	tag = "p"
	nodes := ParseFragment(src)
	if el := firstElement(nodes); el != nil {
		tag = el.Data
	}
	var sb strings.Builder
	for _, n := range nodes {
		collectText(n, &sb)
	}
	return tag, strings.Fields(sb.String())
}

// BuildText reassembles a word range into a closed fragment with the
// original tag.
func BuildText(tag string, words []string) string {
	return "<" + tag + ">" + html.EscapeString(strings.Join(words, " ")) + "</" + tag + ">"
}

func firstElement(nodes []*html.Node) *html.Node {
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n
		}
	}
	return nil
}

func findFirst(nodes []*html.Node, tags ...string) *html.Node {
	for _, n := range nodes {
		if found := findFirstIn(n, tags); found != nil {
			return found
		}
	}
	return nil
}

func findFirstIn(n *html.Node, tags []string) *html.Node {
	if n.Type == html.ElementNode {
		for _, t := range tags {
			if n.Data == t {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirstIn(c, tags); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
			return // list items and table rows do not nest at the same level
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
