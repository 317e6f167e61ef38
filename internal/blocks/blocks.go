package blocks

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/edupress/edupress/internal/content"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Kind classifies a block for pagination purposes. Each kind carries its own
// split strategy when a block is too tall for a single page.
type Kind int

const (
	KindHeading Kind = iota + 1
	KindParagraph
	KindList
	KindTable
	KindPair
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	case KindPair:
		return "pair"
	}
	return "unknown"
}

// Block is one semantic unit handed to the paginator.
type Block struct {
	Kind  Kind
	Level int // heading level 1-6, zero otherwise
	HTML  string
	// Atomic blocks are kept together across page boundaries even when they
	// exceed the page budget.
	Atomic bool
}

// FromItems assembles the ordered block sequence for an export. Q&A items
// become atomic question/answer pairs; everything else becomes a title
// heading followed by the body's own block structure.
func FromItems(items []content.Item, rt content.ResourceType) []Block {
	var out []Block
	for _, it := range items {
		body := it.Body
		if it.Metadata["format"] == "markdown" {
			body = markdownToHTML(body)
		}

		if rt == content.ResourceQNA {
			out = append(out, Block{
				Kind: KindPair,
				HTML: fmt.Sprintf(`<div class="qa-pair"><div class="qa-question">%s</div><div class="qa-answer">%s</div></div>`,
					it.Title, body),
				Atomic: true,
			})
			continue
		}

		if strings.TrimSpace(it.Title) != "" {
			out = append(out, Block{
				Kind:  KindHeading,
				Level: 2,
				HTML:  "<h2>" + it.Title + "</h2>",
			})
		}
		out = append(out, FromHTML(body)...)
	}
	return out
}

// FromHTML splits an HTML body into top-level blocks, classifying each
// element by tag. Unknown elements degrade to paragraphs.
func FromHTML(src string) []Block {
	var out []Block
	for _, n := range ParseFragment(src) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, Block{Kind: KindParagraph, HTML: "<p>" + html.EscapeString(t) + "</p>"})
			}
		case html.ElementNode:
			rendered := Render(n)
			if rendered == "" {
				continue
			}
			if lvl := headingLevel(n.Data); lvl > 0 {
				out = append(out, Block{Kind: KindHeading, Level: lvl, HTML: rendered})
				continue
			}
			switch n.Data {
			case "ul", "ol":
				out = append(out, Block{Kind: KindList, HTML: rendered})
			case "table":
				out = append(out, Block{Kind: KindTable, HTML: rendered})
			default:
				out = append(out, Block{Kind: KindParagraph, HTML: rendered})
			}
		}
	}
	return out
}

// ParseFragment parses src as body content and returns its top-level nodes.
// Malformed markup never fails; the parser recovers the way a browser would.
func ParseFragment(src string) []*html.Node {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return nil
	}
	return nodes
}

// Render serializes a node back to HTML.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func markdownToHTML(src string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		// Fall back to treating the source as preformatted text.
		return "<p>" + html.EscapeString(src) + "</p>"
	}
	return buf.String()
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}
