// Package paginate partitions an ordered block sequence into pages whose
// measured height stays within a fixed budget. Block order is never changed;
// only boundaries between blocks (or, for oversized blocks, between their
// words, list items or table rows) may become page breaks.
package paginate

import (
	"fmt"
	"strings"

	"github.com/edupress/edupress/internal/blocks"
	"github.com/edupress/edupress/internal/measure"
)

const (
	// DefaultBudget is the maximum content height per page in logical px.
	DefaultBudget = 900.0
	// DefaultOrphanThreshold is the minimum remaining space required to
	// start a heading on the current page.
	DefaultOrphanThreshold = 150.0
)

// Spacer is the fixed divider inserted between consecutive blocks. Its
// height is accounted like any block's.
var Spacer = fmt.Sprintf(`<div class=%q></div>`, measure.SpacerClass)

// PlaceholderHTML fills the single page emitted for empty input.
const PlaceholderHTML = `<div class="empty-note"><p>No content available.</p></div>`

// Page is one produced page: the concatenated HTML of its blocks and their
// cumulative measured height.
type Page struct {
	HTML   string
	Height float64
}

// Paginator distributes blocks across pages using a height measurer.
type Paginator struct {
	Measurer        measure.Measurer
	Budget          float64
	OrphanThreshold float64
	SpacerHeight    float64
}

// New returns a paginator with the standard page budget.
func New(m measure.Measurer) *Paginator {
	return &Paginator{
		Measurer:        m,
		Budget:          DefaultBudget,
		OrphanThreshold: DefaultOrphanThreshold,
		SpacerHeight:    measure.SpacerHeight,
	}
}

// Paginate produces the ordered page sequence for bs. Every page's height is
// within the budget except pages holding a single block that alone exceeds
// it: atomic pairs and headings are force-placed whole, oversized paragraphs
// split by word, lists by item and tables by row. Empty input yields exactly
// one placeholder page.
func (p *Paginator) Paginate(bs []blocks.Block) ([]Page, error) {
	r := &run{p: p}
	for _, b := range bs {
		h, err := p.Measurer.Measure(b.HTML)
		if err != nil {
			return nil, fmt.Errorf("measure %s block: %w", b.Kind, err)
		}

		// The heading-orphan rule runs before the overflow check.
		if b.Kind == blocks.KindHeading && r.cur.Len() > 0 && p.Budget-r.curH < p.OrphanThreshold {
			r.flush()
		}

		if r.curH+r.needed(h) <= p.Budget {
			r.place(b.HTML, h)
			continue
		}
		r.flush()
		if h <= p.Budget {
			r.place(b.HTML, h)
			continue
		}

		// The block exceeds the budget even on an empty page.
		switch {
		case b.Atomic || b.Kind == blocks.KindHeading:
			// Kept-together pairs are never split destructively; oversized
			// standalone headings are force-placed the same way.
			r.place(b.HTML, h)
			r.flush()
		case b.Kind == blocks.KindList:
			err = r.splitList(b)
		case b.Kind == blocks.KindTable:
			err = r.splitTable(b)
		default:
			err = r.splitWords(b)
		}
		if err != nil {
			return nil, err
		}
	}
	r.flush()

	if len(r.pages) == 0 {
		h, err := p.Measurer.Measure(PlaceholderHTML)
		if err != nil {
			h = 0
		}
		r.pages = append(r.pages, Page{HTML: PlaceholderHTML, Height: h})
	}
	return r.pages, nil
}

type run struct {
	p     *Paginator
	pages []Page
	cur   strings.Builder
	curH  float64
}

func (r *run) flush() {
	if r.cur.Len() == 0 {
		return
	}
	r.pages = append(r.pages, Page{HTML: r.cur.String(), Height: r.curH})
	r.cur.Reset()
	r.curH = 0
}

// needed is the height cost of adding h to the current page, including the
// inter-block spacer when the page already has content.
func (r *run) needed(h float64) float64 {
	if r.cur.Len() > 0 {
		return h + r.p.SpacerHeight
	}
	return h
}

// place appends html of known height. The caller has already checked fit.
func (r *run) place(html string, h float64) {
	if r.cur.Len() > 0 {
		r.cur.WriteString(Spacer)
		r.curH += r.p.SpacerHeight
	}
	r.cur.WriteString(html)
	r.curH += h
}

// forcePlace puts html alone on its own page, accepting overflow.
func (r *run) forcePlace(html string) error {
	h, err := r.p.Measurer.Measure(html)
	if err != nil {
		return fmt.Errorf("measure oversized block: %w", err)
	}
	r.place(html, h)
	r.flush()
	return nil
}

// splitList breaks an oversized list by item. Every emitted fragment is a
// closed list; ordered lists keep their numbering via the start attribute.
func (r *run) splitList(b blocks.Block) error {
	tag, items, err := blocks.ListParts(b.HTML)
	if err != nil || len(items) == 0 {
		return r.forcePlace(b.HTML)
	}
	start := 0
	for next := start + 1; next < len(items); next++ {
		cand := blocks.BuildList(tag, items[start:next+1], start+1)
		h, err := r.p.Measurer.Measure(cand)
		if err != nil {
			return fmt.Errorf("measure sublist: %w", err)
		}
		if r.curH+r.needed(h) > r.p.Budget {
			if err := r.emitMeasured(blocks.BuildList(tag, items[start:next], start+1)); err != nil {
				return err
			}
			r.flush()
			start = next
		}
	}
	return r.emitMeasured(blocks.BuildList(tag, items[start:], start+1))
}

// splitTable breaks an oversized table by row, closing the table tag on
// every fragment.
func (r *run) splitTable(b blocks.Block) error {
	rows, err := blocks.TableRows(b.HTML)
	if err != nil || len(rows) == 0 {
		return r.forcePlace(b.HTML)
	}
	start := 0
	for next := start + 1; next < len(rows); next++ {
		cand := blocks.BuildTable(rows[start : next+1])
		h, err := r.p.Measurer.Measure(cand)
		if err != nil {
			return fmt.Errorf("measure table fragment: %w", err)
		}
		if r.curH+r.needed(h) > r.p.Budget {
			if err := r.emitMeasured(blocks.BuildTable(rows[start:next])); err != nil {
				return err
			}
			r.flush()
			start = next
		}
	}
	return r.emitMeasured(blocks.BuildTable(rows[start:]))
}

// splitWords breaks an oversized paragraph word by word, growing each part
// until its measured height would exceed the budget.
func (r *run) splitWords(b blocks.Block) error {
	tag, words := blocks.Words(b.HTML)
	if len(words) == 0 {
		return r.forcePlace(b.HTML)
	}
	start := 0
	for next := start + 1; next < len(words); next++ {
		cand := blocks.BuildText(tag, words[start:next+1])
		h, err := r.p.Measurer.Measure(cand)
		if err != nil {
			return fmt.Errorf("measure text fragment: %w", err)
		}
		if r.curH+r.needed(h) > r.p.Budget {
			if err := r.emitMeasured(blocks.BuildText(tag, words[start:next])); err != nil {
				return err
			}
			r.flush()
			start = next
		}
	}
	return r.emitMeasured(blocks.BuildText(tag, words[start:]))
}

func (r *run) emitMeasured(html string) error {
	h, err := r.p.Measurer.Measure(html)
	if err != nil {
		return fmt.Errorf("measure fragment: %w", err)
	}
	r.place(html, h)
	return nil
}
