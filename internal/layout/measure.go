package layout

import (
	"strings"
	"sync"

	"github.com/jung-kurt/gofpdf"
	"github.com/muesli/reflow/wordwrap"
)

// Style describes the box content is rendered into. Heights are in points.
// Width is in points for PDFMeasurer and in character cells for CellMeasurer.
type Style struct {
	Width      float64
	LineHeight float64
	FontFamily string
	FontSize   float64
}

// DefaultStyle is an A4 page with 20mm margins set in 12pt Times
var DefaultStyle = Style{
	Width:      482,
	LineHeight: 14.4,
	FontFamily: "Times",
	FontSize:   12,
}

// Measurer reports the rendered height of content laid out with style
type Measurer interface {
	Measure(content string, style Style) float64
}

// MeasureFunc adapts a function to the Measurer interface
type MeasureFunc func(content string, style Style) float64

// Measure calls f
func (f MeasureFunc) Measure(content string, style Style) float64 {
	return f(content, style)
}

// headingScale mirrors the relative heading sizes used when the book is typeset
var headingScale = map[string]float64{
	"# ":   2.0,
	"## ":  1.5,
	"### ": 1.25,
}

func splitHeading(line string) (string, float64) {
	for _, marker := range []string{"### ", "## ", "# "} {
		if strings.HasPrefix(line, marker) {
			return line[len(marker):], headingScale[marker]
		}
	}
	return line, 1
}

// PDFMeasurer lays text out with the metrics of the PDF core fonts
type PDFMeasurer struct {
	mu        sync.Mutex
	pdf       *gofpdf.Fpdf
	translate func(string) string
}

// NewPDFMeasurer creates a measurer backed by an off-screen gofpdf document
func NewPDFMeasurer() *PDFMeasurer {
	pdf := gofpdf.New("P", "pt", "A4", "")
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	if translate == nil {
		pdf.ClearError()
		translate = func(s string) string { return s }
	}
	return &PDFMeasurer{
		pdf:       pdf,
		translate: translate,
	}
}

// Measure returns the height in points of content wrapped to style.Width
func (m *PDFMeasurer) Measure(content string, style Style) float64 {
	if content == "" {
		return 0
	}
	style = withDefaults(style)

	m.mu.Lock()
	defer m.mu.Unlock()

	var height float64
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		text, scale := splitHeading(line)

		m.setFont(style, scale)
		n := len(m.pdf.SplitLines([]byte(m.translate(text)), style.Width))
		if n == 0 {
			n = 1
		}
		height += float64(n) * style.LineHeight * scale
	}
	return height
}

func (m *PDFMeasurer) setFont(style Style, scale float64) {
	fontStyle := ""
	if scale > 1 {
		fontStyle = "B"
	}
	m.pdf.SetFont(style.FontFamily, fontStyle, style.FontSize*scale)
	if m.pdf.Err() {
		// Unknown family, fall back to the default core font
		m.pdf.ClearError()
		m.pdf.SetFont(DefaultStyle.FontFamily, fontStyle, style.FontSize*scale)
	}
}

// DefaultColumns is the cell width used by CellMeasurer when none is configured
const DefaultColumns = 80

// CellMeasurer lays text out on a fixed grid of character cells, as a
// terminal or plain-text preview does
type CellMeasurer struct{}

// Measure returns the number of rows times style.LineHeight
func (CellMeasurer) Measure(content string, style Style) float64 {
	if content == "" {
		return 0
	}
	if style.Width <= 0 {
		style.Width = DefaultColumns
	}
	style = withDefaults(style)

	rows := 0
	for _, line := range strings.Split(content, "\n") {
		wrapped := wordwrap.String(strings.TrimSuffix(line, "\r"), int(style.Width))
		rows += strings.Count(wrapped, "\n") + 1
	}
	return float64(rows) * style.LineHeight
}

func withDefaults(style Style) Style {
	if style.Width <= 0 {
		style.Width = DefaultStyle.Width
	}
	if style.LineHeight <= 0 {
		style.LineHeight = DefaultStyle.LineHeight
	}
	if style.FontFamily == "" {
		style.FontFamily = DefaultStyle.FontFamily
	}
	if style.FontSize <= 0 {
		style.FontSize = DefaultStyle.FontSize
	}
	return style
}
