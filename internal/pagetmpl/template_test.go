package pagetmpl

import (
	"strings"
	"testing"

	"github.com/edupress/edupress/internal/content"
	"github.com/edupress/edupress/internal/paginate"
)

func TestRender(t *testing.T) {
	pages := []paginate.Page{
		{HTML: "<p>first</p>", Height: 100},
		{HTML: "<p>second</p>", Height: 120},
		{HTML: "<p>third</p>", Height: 80},
	}
	h := content.Hierarchy{ClassName: "Grade 8", LessonName: "Energy in Cells"}

	docs := Render(pages, h)
	if len(docs) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(docs))
	}
	for i, d := range docs {
		if d.Index != i+1 {
			t.Errorf("doc %d: index %d", i, d.Index)
		}
		if d.Total != 3 {
			t.Errorf("doc %d: total %d", i, d.Total)
		}
		if d.BodyHTML != pages[i].HTML {
			t.Errorf("doc %d: body %q", i, d.BodyHTML)
		}
	}
}

func TestBreadcrumbSkipsEmptyLevels(t *testing.T) {
	h := content.Hierarchy{ClassName: "Grade 8", SubjectName: "", LessonName: "Energy in Cells"}
	docs := Render([]paginate.Page{{HTML: "<p>x</p>"}}, h)
	if got := docs[0].Breadcrumb(); got != "Grade 8 / Energy in Cells" {
		t.Errorf("unexpected breadcrumb %q", got)
	}

	empty := Render([]paginate.Page{{HTML: "<p>x</p>"}}, content.Hierarchy{})
	if got := empty[0].Breadcrumb(); got != "" {
		t.Errorf("expected empty breadcrumb, got %q", got)
	}
}

func TestPageLabel(t *testing.T) {
	d := PageDoc{Index: 2, Total: 5}
	if got := d.PageLabel(); got != "page 2 / 5" {
		t.Errorf("unexpected label %q", got)
	}
}

func TestHTML(t *testing.T) {
	d := PageDoc{
		Index:    1,
		Total:    1,
		Labels:   []string{"Grade 8", "Science"},
		BodyHTML: `<p>hello world</p><div class="block-spacer"></div>`,
	}
	out, err := d.HTML("data:image/png;base64,xyz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		`<p>hello world</p>`,
		"Grade 8 / Science",
		Tagline,
		"page 1 / 1",
		`src="data:image/png;base64,xyz"`,
		".block-spacer { height: 8px; }",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
