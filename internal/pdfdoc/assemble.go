// Package pdfdoc assembles rasterized page bitmaps into a multi-page PDF.
package pdfdoc

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"codeberg.org/go-pdf/fpdf"
)

// Assemble appends each bitmap, strictly in input order, as one A4 page of
// the output document, stretched to fill the page exactly. Pages are never
// reordered or deduplicated. A failure on any page fails the whole
// document; no partial output is produced.
func Assemble(pages []image.Image, title string) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to assemble")
	}

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle(title, true)
	doc.SetCreator("edupress", true)
	pageW, pageH := doc.GetPageSize()

	for i, img := range pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page-%d", i+1)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		doc.RegisterImageOptionsReader(name, opts, &buf)
		doc.AddPage()
		doc.ImageOptions(name, 0, 0, pageW, pageH, false, opts, 0, "")
	}

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return out.Bytes(), nil
}
