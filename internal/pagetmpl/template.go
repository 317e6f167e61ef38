// Package pagetmpl wraps paginated content into fixed-geometry document
// pages with a header, footer and page-level styling.
package pagetmpl

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/edupress/edupress/internal/content"
	"github.com/edupress/edupress/internal/paginate"
)

// Page geometry approximates A4 at 96dpi. The content width equals the
// probe width used for measurement; breaking that parity invalidates every
// measured height.
const (
	PageWidth    = 794
	PageHeight   = 1123
	SideMargin   = 47
	HeaderHeight = 96
	FooterHeight = 40
	ContentWidth = PageWidth - 2*SideMargin
)

// Tagline is the constant footer line on every exported page.
const Tagline = "Keep learning, every day."

// FontStack is applied to every injected element, overriding any inline
// font-family from user content so measured heights stay valid.
const FontStack = `"Helvetica Neue", Helvetica, Arial, sans-serif`

// PageDoc is one fully templated page ready for rasterization. Index is
// 1-based.
type PageDoc struct {
	Index    int
	Total    int
	Labels   []string
	BodyHTML string
}

// Render templates every paginated page against the hierarchy metadata.
// Output order equals input order, one PageDoc per page.
func Render(pages []paginate.Page, h content.Hierarchy) []PageDoc {
	labels := h.Labels()
	docs := make([]PageDoc, len(pages))
	for i, pg := range pages {
		docs[i] = PageDoc{
			Index:    i + 1,
			Total:    len(pages),
			Labels:   labels,
			BodyHTML: pg.HTML,
		}
	}
	return docs
}

// Breadcrumb joins the non-empty hierarchy labels for the header.
func (d PageDoc) Breadcrumb() string {
	return strings.Join(d.Labels, " / ")
}

// PageLabel is the 1-indexed footer counter.
func (d PageDoc) PageLabel() string {
	return fmt.Sprintf("page %d / %d", d.Index, d.Total)
}

var docTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
.page { width: {{.PageWidth}}px; height: {{.PageHeight}}px; background: #fff; position: relative; }
.page, .page * { font-family: {{.FontStack}} !important; font-size: 14pt; line-height: 1.6; }
.page-header { height: {{.HeaderHeight}}px; padding: 0 {{.SideMargin}}px; display: flex; align-items: center; justify-content: space-between; }
.page-header .crumbs { text-align: right; font-size: 10pt; color: #444; }
.page-body { width: {{.ContentWidth}}px; margin: 0 {{.SideMargin}}px; overflow: hidden; }
.page-footer { height: {{.FooterHeight}}px; padding: 0 {{.SideMargin}}px; position: absolute; bottom: 0; left: 0; right: 0; display: flex; align-items: center; justify-content: space-between; font-size: 9pt; color: #666; }
.block-spacer { height: 8px; }
.empty-note { text-align: center; color: #888; }
</style>
</head>
<body>
<div class="page">
<div class="page-header"><img class="logo" alt="logo" src="{{.LogoSrc}}"><div class="crumbs">{{.Breadcrumb}}</div></div>
<div class="page-body">{{.Body}}</div>
<div class="page-footer"><span>{{.Tagline}}</span><span>{{.PageLabel}}</span></div>
</div>
</body>
</html>
`))

// HTML serializes the page as a standalone document. The export pipeline
// rasterizes PageDocs directly; this serialization backs the browse preview
// and tests.
func (d PageDoc) HTML(logoSrc string) (string, error) {
	var sb strings.Builder
	err := docTmpl.Execute(&sb, map[string]any{
		"PageWidth":    PageWidth,
		"PageHeight":   PageHeight,
		"SideMargin":   SideMargin,
		"HeaderHeight": HeaderHeight,
		"FooterHeight": FooterHeight,
		"ContentWidth": ContentWidth,
		"FontStack":    template.CSS(FontStack),
		"LogoSrc":      logoSrc,
		"Breadcrumb":   d.Breadcrumb(),
		"Body":         template.HTML(d.BodyHTML),
		"Tagline":      Tagline,
		"PageLabel":    d.PageLabel(),
	})
	if err != nil {
		return "", fmt.Errorf("render page template: %w", err)
	}
	return sb.String(), nil
}
