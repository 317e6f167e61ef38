// Package measure provides deterministic height measurement of HTML
// fragments under the fixed typography used by the page renderer. The
// paginator depends only on the Measurer interface; the concrete Engine is a
// text-metrics layout engine sharing one font stack with rasterization so
// measured heights stay valid at render time.
package measure

// Probe context. Width parity with the rendered content region is a hard
// requirement: pages are 794px wide with 47px side margins.
const (
	ProbeWidth  = 700.0 // logical px
	BodyFontPt  = 14.0
	LineSpacing = 1.6
	BaseDPI     = 96.0

	ListIndent  = 28.0
	CellPadding = 4.0

	// SpacerClass marks the fixed-height divider the paginator inserts
	// between consecutive blocks.
	SpacerClass  = "block-spacer"
	SpacerHeight = 8.0
)

// headingScale follows browser default heading sizes relative to body text.
var headingScale = [7]float64{0, 2.0, 1.5, 1.17, 1.0, 0.83, 0.67}

// Measurer measures the rendered height of an HTML fragment in logical
// pixels at the probe width.
type Measurer interface {
	Measure(html string) (float64, error)
}

// Line is one positioned text run. Y is the baseline offset from the top of
// the fragment, X the offset from its left edge.
type Line struct {
	Text   string
	X, Y   float64
	SizePt float64
	Bold   bool
}

// Rule is a horizontal or vertical stroke, used for table borders.
type Rule struct {
	X1, Y1, X2, Y2 float64
}

// Fragment is the layout result for one HTML fragment: its total height plus
// everything needed to draw it exactly as measured.
type Fragment struct {
	Height float64
	Lines  []Line
	Rules  []Rule
}
