package measure

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Engine lays out HTML fragments against the probe context using real font
// metrics. It is safe for concurrent use, though the export pipeline
// serializes access through the staging surface anyway.
type Engine struct {
	regular *truetype.Font
	bold    *truetype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	sizePt float64
	dpi    float64
	bold   bool
}

// NewEngine builds an engine on the embedded Go fonts.
func NewEngine() (*Engine, error) {
	return NewEngineFromTTF(goregular.TTF, gobold.TTF)
}

// NewEngineFromTTF builds an engine on caller-supplied TTF data, e.g. a
// configured brand font.
func NewEngineFromTTF(regularTTF, boldTTF []byte) (*Engine, error) {
	reg, err := truetype.Parse(regularTTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bld, err := truetype.Parse(boldTTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Engine{
		regular: reg,
		bold:    bld,
		faces:   make(map[faceKey]font.Face),
	}, nil
}

// Face returns a cached face for the given size, dpi and weight. The
// rasterizer requests 2x-dpi faces from the same fonts the prober measures
// with.
func (e *Engine) Face(sizePt, dpi float64, bold bool) font.Face {
	key := faceKey{sizePt: sizePt, dpi: dpi, bold: bold}
	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.faces[key]; ok {
		return f
	}
	src := e.regular
	if bold {
		src = e.bold
	}
	f := truetype.NewFace(src, &truetype.Options{Size: sizePt, DPI: dpi})
	e.faces[key] = f
	return f
}

// Measure returns the fragment's height in logical pixels at the probe
// width. It never fails on malformed HTML.
func (e *Engine) Measure(src string) (float64, error) {
	frag, err := e.Layout(src)
	if err != nil {
		return 0, err
	}
	return frag.Height, nil
}

// Layout measures src and returns the positioned lines and rules so the
// rasterizer can draw exactly what was measured.
func (e *Engine) Layout(src string) (*Fragment, error) {
	st := &layoutState{e: e, frag: &Fragment{}}
	for _, n := range parseFragment(src) {
		st.block(n, 0, ProbeWidth)
	}
	st.frag.Height = st.y
	return st.frag, nil
}

type layoutState struct {
	e    *Engine
	frag *Fragment
	y    float64
}

// block lays out one block-level node and advances the cursor.
func (s *layoutState) block(n *html.Node, x, width float64) {
	switch n.Type {
	case html.TextNode:
		if t := collapse(n.Data); t != "" {
			s.text(t, x, width, BodyFontPt, false)
		}
	case html.ElementNode:
		s.element(n, x, width)
	}
}

func (s *layoutState) element(n *html.Node, x, width float64) {
	if hasClass(n, SpacerClass) {
		s.y += SpacerHeight
		return
	}
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		lvl := int(n.Data[1] - '0')
		size := BodyFontPt * headingScale[lvl]
		s.text(textContent(n), x, width, size, true)
		// headings carry a small bottom gap
		s.y += size * BaseDPI / 72 * 0.3
	case "ul", "ol":
		s.list(n, x, width)
	case "table":
		s.table(n, x, width)
	case "img":
		if h := floatAttr(n, "height"); h > 0 {
			s.y += h
		}
	case "script", "style":
		// no rendered height
	default:
		if children := blockChildren(n); children != nil {
			for _, c := range children {
				s.block(c, x, width)
			}
			return
		}
		if t := textContent(n); t != "" {
			s.text(t, x, width, BodyFontPt, false)
		}
	}
}

// text word-wraps a run at the given width and emits its lines.
func (s *layoutState) text(t string, x, width, sizePt float64, bold bool) {
	if t == "" {
		return
	}
	face := s.e.Face(sizePt, BaseDPI, bold)
	sizePx := sizePt * BaseDPI / 72
	lineH := sizePx * LineSpacing
	ascent := fixedToFloat(face.Metrics().Ascent)
	lines := wrap(face, t, width)
	for i, ln := range lines {
		s.frag.Lines = append(s.frag.Lines, Line{
			Text:   ln,
			X:      x,
			Y:      s.y + float64(i)*lineH + ascent,
			SizePt: sizePt,
			Bold:   bold,
		})
	}
	s.y += float64(len(lines)) * lineH
}

func (s *layoutState) list(n *html.Node, x, width float64) {
	counter := 1
	if n.Data == "ol" {
		if start := floatAttr(n, "start"); start >= 1 {
			counter = int(start)
		}
	}
	for _, li := range directDescendants(n, "li") {
		marker := "• "
		if n.Data == "ol" {
			marker = strconv.Itoa(counter) + ". "
			counter++
		}
		s.text(marker+textContent(li), x+ListIndent, width-ListIndent, BodyFontPt, false)
	}
}

func (s *layoutState) table(n *html.Node, x, width float64) {
	rows := directDescendants(n, "tr")
	if len(rows) == 0 {
		return
	}
	cols := 0
	for _, tr := range rows {
		if c := len(cells(tr)); c > cols {
			cols = c
		}
	}
	if cols == 0 {
		return
	}
	cellW := width / float64(cols)
	face := s.e.Face(BodyFontPt, BaseDPI, false)
	lineH := BodyFontPt * BaseDPI / 72 * LineSpacing
	ascent := fixedToFloat(face.Metrics().Ascent)

	s.frag.Rules = append(s.frag.Rules, Rule{X1: x, Y1: s.y, X2: x + width, Y2: s.y})
	for _, tr := range rows {
		rowCells := cells(tr)
		rowLines := make([][]string, len(rowCells))
		maxLines := 1
		for i, td := range rowCells {
			bold := td.Data == "th"
			f := s.e.Face(BodyFontPt, BaseDPI, bold)
			rowLines[i] = wrap(f, textContent(td), cellW-2*CellPadding)
			if len(rowLines[i]) > maxLines {
				maxLines = len(rowLines[i])
			}
		}
		for i, lns := range rowLines {
			bold := rowCells[i].Data == "th"
			cellX := x + float64(i)*cellW + CellPadding
			for j, ln := range lns {
				s.frag.Lines = append(s.frag.Lines, Line{
					Text:   ln,
					X:      cellX,
					Y:      s.y + CellPadding + float64(j)*lineH + ascent,
					SizePt: BodyFontPt,
					Bold:   bold,
				})
			}
		}
		s.y += float64(maxLines)*lineH + 2*CellPadding
		s.frag.Rules = append(s.frag.Rules, Rule{X1: x, Y1: s.y, X2: x + width, Y2: s.y})
	}
}

// wrap greedily word-wraps t to the given width. A single word wider than
// the width stays on its own line; overflow is accepted rather than broken
// mid-word.
func wrap(face font.Face, t string, width float64) []string {
	words := strings.Fields(t)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		cand := cur + " " + w
		if fixedToFloat(font.MeasureString(face, cand)) > width {
			lines = append(lines, cur)
			cur = w
		} else {
			cur = cand
		}
	}
	return append(lines, cur)
}

func parseFragment(src string) []*html.Node {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return nil
	}
	return nodes
}

var blockTags = map[string]bool{
	"p": true, "div": true, "blockquote": true, "pre": true, "section": true,
	"article": true, "ul": true, "ol": true, "table": true, "figure": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// blockChildren returns n's children when n acts as a container of
// block-level elements, nil when n should be laid out as a single text run.
func blockChildren(n *html.Node) []*html.Node {
	isContainer := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && blockTags[c.Data] {
			isContainer = true
			break
		}
	}
	if !isContainer {
		return nil
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// directDescendants finds tagged descendants without crossing into a nested
// occurrence of the same tag.
func directDescendants(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
			return
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

func cells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			out = append(out, c)
		}
	}
	return out
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return collapse(buf.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func floatAttr(n *html.Node, key string) float64 {
	for _, a := range n.Attr {
		if a.Key == key {
			if v, err := strconv.ParseFloat(strings.TrimSuffix(a.Val, "px"), 64); err == nil {
				return v
			}
		}
	}
	return 0
}

// fixedToFloat converts a 26.6 fixed-point value to float64 pixels.
func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
