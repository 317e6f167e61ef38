// Package raster draws templated pages into fixed-resolution bitmaps. It
// renders through the same layout engine the paginator measured with, so a
// page can never reflow between measurement and rasterization.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/edupress/edupress/internal/measure"
	"github.com/edupress/edupress/internal/pagetmpl"
)

// Scale is the device-pixel multiplier over the logical page box.
const Scale = 2

// Logical logo bounds inside the header.
const (
	logoMaxWidth  = 200
	logoMaxHeight = 56
)

var (
	inkColor    = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	crumbColor  = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}
	footerColor = color.RGBA{R: 0x77, G: 0x77, B: 0x77, A: 0xff}
	ruleColor   = color.RGBA{R: 0xb0, G: 0xb0, B: 0xb0, A: 0xff}
)

// Rasterizer renders PageDocs to bitmaps.
type Rasterizer struct {
	engine *measure.Engine
	logo   image.Image // nil when the logo was unavailable
}

// New builds a rasterizer. logoData may be nil or undecodable; the header
// then renders without a logo.
func New(engine *measure.Engine, logoData []byte) *Rasterizer {
	r := &Rasterizer{engine: engine}
	if len(logoData) > 0 {
		if img, _, err := image.Decode(bytes.NewReader(logoData)); err == nil {
			r.logo = scaleToFit(img, logoMaxWidth*Scale, logoMaxHeight*Scale)
		}
	}
	return r
}

// RenderPage rasterizes one page at 2x over the logical page box on an
// opaque white background. Any failure is fatal to the whole export job.
func (r *Rasterizer) RenderPage(doc pagetmpl.PageDoc) (image.Image, error) {
	frag, err := r.engine.Layout(doc.BodyHTML)
	if err != nil {
		return nil, fmt.Errorf("layout page %d: %w", doc.Index, err)
	}

	dc := gg.NewContext(pagetmpl.PageWidth*Scale, pagetmpl.PageHeight*Scale)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	r.drawHeader(dc, doc)
	r.drawBody(dc, frag)
	r.drawFooter(dc, doc)

	return dc.Image(), nil
}

func (r *Rasterizer) drawHeader(dc *gg.Context, doc pagetmpl.PageDoc) {
	if r.logo != nil {
		b := r.logo.Bounds()
		y := (pagetmpl.HeaderHeight*Scale - b.Dy()) / 2
		dc.DrawImage(r.logo, pagetmpl.SideMargin*Scale, y)
	}
	if crumb := doc.Breadcrumb(); crumb != "" {
		dc.SetFontFace(r.engine.Face(10, measure.BaseDPI*Scale, false))
		dc.SetColor(crumbColor)
		dc.DrawStringAnchored(crumb,
			float64((pagetmpl.PageWidth-pagetmpl.SideMargin)*Scale),
			float64(pagetmpl.HeaderHeight*Scale)/2,
			1, 0.5)
	}
	dc.SetColor(ruleColor)
	dc.SetLineWidth(Scale)
	dc.DrawLine(
		float64(pagetmpl.SideMargin*Scale), float64(pagetmpl.HeaderHeight*Scale),
		float64((pagetmpl.PageWidth-pagetmpl.SideMargin)*Scale), float64(pagetmpl.HeaderHeight*Scale))
	dc.Stroke()
}

func (r *Rasterizer) drawBody(dc *gg.Context, frag *measure.Fragment) {
	dc.SetColor(inkColor)
	for _, ln := range frag.Lines {
		dc.SetFontFace(r.engine.Face(ln.SizePt, measure.BaseDPI*Scale, ln.Bold))
		dc.DrawString(ln.Text,
			(pagetmpl.SideMargin+ln.X)*Scale,
			(pagetmpl.HeaderHeight+ln.Y)*Scale)
	}
	if len(frag.Rules) > 0 {
		dc.SetColor(ruleColor)
		dc.SetLineWidth(Scale * 0.75)
		for _, rule := range frag.Rules {
			dc.DrawLine(
				(pagetmpl.SideMargin+rule.X1)*Scale, (pagetmpl.HeaderHeight+rule.Y1)*Scale,
				(pagetmpl.SideMargin+rule.X2)*Scale, (pagetmpl.HeaderHeight+rule.Y2)*Scale)
			dc.Stroke()
		}
	}
}

func (r *Rasterizer) drawFooter(dc *gg.Context, doc pagetmpl.PageDoc) {
	dc.SetFontFace(r.engine.Face(9, measure.BaseDPI*Scale, false))
	dc.SetColor(footerColor)
	footerMid := float64((pagetmpl.PageHeight)*Scale) - float64(pagetmpl.FooterHeight*Scale)/2
	dc.DrawStringAnchored(pagetmpl.Tagline, float64(pagetmpl.SideMargin*Scale), footerMid, 0, 0.5)
	dc.DrawStringAnchored(doc.PageLabel(),
		float64((pagetmpl.PageWidth-pagetmpl.SideMargin)*Scale), footerMid, 1, 0.5)
}

// scaleToFit downscales src to fit the given box, preserving aspect ratio.
// Images already inside the box are left at their native size.
func scaleToFit(src image.Image, maxW, maxH int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxW && h <= maxH {
		return src
	}
	ratio := float64(maxW) / float64(w)
	if r := float64(maxH) / float64(h); r < ratio {
		ratio = r
	}
	dw := int(float64(w) * ratio)
	dh := int(float64(h) * ratio)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
