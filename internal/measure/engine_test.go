package measure

import (
	"strings"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("engine init: %v", err)
	}
	return e
}

func TestMeasure_EmptyFragmentIsZero(t *testing.T) {
	e := newTestEngine(t)
	for _, src := range []string{"", "   ", "<div></div>"} {
		h, err := e.Measure(src)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", src, err)
		}
		if h != 0 {
			t.Errorf("expected zero height for %q, got %.2f", src, h)
		}
	}
}

func TestMeasure_MoreTextIsTaller(t *testing.T) {
	e := newTestEngine(t)
	short, err := e.Measure("<p>one line</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	long, err := e.Measure("<p>" + strings.Repeat("many words make the paragraph wrap ", 20) + "</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if short <= 0 {
		t.Errorf("expected positive height, got %.2f", short)
	}
	if long <= short {
		t.Errorf("expected wrapped paragraph (%.2f) taller than one line (%.2f)", long, short)
	}
}

func TestMeasure_Deterministic(t *testing.T) {
	e := newTestEngine(t)
	src := "<h2>Title</h2><p>" + strings.Repeat("stable text ", 40) + "</p><ul><li>a</li><li>b</li></ul>"
	first, err := e.Measure(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		h, err := e.Measure(src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h != first {
			t.Fatalf("measurement drifted: %.4f vs %.4f", h, first)
		}
	}
}

func TestMeasure_MalformedHTMLDoesNotFail(t *testing.T) {
	e := newTestEngine(t)
	srcs := []string{
		"<p>unclosed",
		"<ul><li>dangling",
		"<table><tr><td>loose",
		"<wat>unknown tag</wat>",
		"<<>><p>noise</p>",
	}
	for _, src := range srcs {
		if _, err := e.Measure(src); err != nil {
			t.Errorf("expected malformed input to degrade, got error for %q: %v", src, err)
		}
	}
}

func TestMeasure_UnknownTagDegradesToText(t *testing.T) {
	e := newTestEngine(t)
	known, err := e.Measure("<p>same words here</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unknown, err := e.Measure("<custom-widget>same words here</custom-widget>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unknown != known {
		t.Errorf("expected unknown tag measured as its text content: %.2f vs %.2f", unknown, known)
	}
}

func TestMeasure_SpacerHasFixedHeight(t *testing.T) {
	e := newTestEngine(t)
	h, err := e.Measure(`<div class="block-spacer"></div>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != SpacerHeight {
		t.Errorf("expected spacer height %.0f, got %.2f", SpacerHeight, h)
	}
}

func TestMeasure_HeadingTallerThanParagraph(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.Measure("<p>Chapter One</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h1, err := e.Measure("<h1>Chapter One</h1>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 <= p {
		t.Errorf("expected h1 (%.2f) taller than paragraph (%.2f)", h1, p)
	}
}

func TestMeasure_ImageHeightAttribute(t *testing.T) {
	e := newTestEngine(t)
	h, err := e.Measure(`<img src="x.png" height="120">`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != 120 {
		t.Errorf("expected image height 120 from attribute, got %.2f", h)
	}
}

func TestLayout_ListLinesIndented(t *testing.T) {
	e := newTestEngine(t)
	frag, err := e.Layout("<ul><li>first</li><li>second</li></ul>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frag.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(frag.Lines))
	}
	for i, ln := range frag.Lines {
		if ln.X != ListIndent {
			t.Errorf("line %d: expected indent %.0f, got %.2f", i, ListIndent, ln.X)
		}
		if !strings.HasPrefix(ln.Text, "• ") {
			t.Errorf("line %d: expected bullet marker, got %q", i, ln.Text)
		}
	}
}

func TestLayout_OrderedListNumbering(t *testing.T) {
	e := newTestEngine(t)
	frag, err := e.Layout(`<ol start="4"><li>d</li><li>e</li></ol>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frag.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(frag.Lines))
	}
	if !strings.HasPrefix(frag.Lines[0].Text, "4. ") || !strings.HasPrefix(frag.Lines[1].Text, "5. ") {
		t.Errorf("expected numbering to honor start attribute, got %q / %q", frag.Lines[0].Text, frag.Lines[1].Text)
	}
}

func TestLayout_TableRulesAndBoldHeader(t *testing.T) {
	e := newTestEngine(t)
	frag, err := e.Layout("<table><tr><th>name</th><th>score</th></tr><tr><td>amir</td><td>9</td></tr></table>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One rule above the table plus one per row.
	if len(frag.Rules) != 3 {
		t.Errorf("expected 3 rules, got %d", len(frag.Rules))
	}
	var sawBold bool
	for _, ln := range frag.Lines {
		if ln.Bold {
			sawBold = true
		}
	}
	if !sawBold {
		t.Error("expected header cells laid out bold")
	}
	if frag.Height <= 0 {
		t.Errorf("expected positive table height, got %.2f", frag.Height)
	}
}

func TestLayout_BaselinesAdvanceMonotonically(t *testing.T) {
	e := newTestEngine(t)
	frag, err := e.Layout("<p>" + strings.Repeat("wrap these words again and again ", 15) + "</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frag.Lines) < 2 {
		t.Fatalf("expected a wrapped paragraph, got %d lines", len(frag.Lines))
	}
	for i := 1; i < len(frag.Lines); i++ {
		if frag.Lines[i].Y <= frag.Lines[i-1].Y {
			t.Fatalf("line %d baseline %.2f does not advance past %.2f", i, frag.Lines[i].Y, frag.Lines[i-1].Y)
		}
	}
	last := frag.Lines[len(frag.Lines)-1]
	if last.Y >= frag.Height {
		t.Errorf("baseline %.2f should sit above the fragment height %.2f", last.Y, frag.Height)
	}
}
