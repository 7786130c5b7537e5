package widget

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/width"
)

// Block metrics in CSS pixels for the default browser stylesheet at a
// 16px root font size.
type blockMetrics struct {
	lineHeight float64
	margin     float64 // top + bottom
	charWidth  float64 // average advance of a narrow glyph
}

var blocks = map[string]blockMetrics{
	"h3": {lineHeight: 22.5, margin: 2 * 18.72, charWidth: 10},
	"p":  {lineHeight: 24, margin: 2 * 16, charWidth: 8},
}

const (
	panelPadding = 2 * 16
	minHeight    = panelPadding
)

// EstimateHeight approximates the rendered height of panel markup so the
// host can size its frame before the browser reports the real value. When
// frameWidth is positive, text is wrapped to the panel's content box.
func EstimateHeight(markup string, frameWidth int) int {
	z := html.NewTokenizer(strings.NewReader(markup))

	total := float64(panelPadding)
	var (
		current string
		columns int
	)

	flush := func() {
		m, ok := blocks[current]
		if !ok {
			return
		}
		total += m.margin + m.lineHeight*float64(lineCount(columns, m.charWidth, frameWidth))
		current, columns = "", 0
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			flush()
			return int(math.Ceil(math.Max(total, minHeight)))
		case html.StartTagToken:
			name, _ := z.TagName()
			if _, ok := blocks[string(name)]; ok {
				flush()
				current = string(name)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == current {
				flush()
			}
		case html.TextToken:
			if current != "" {
				columns += displayColumns(string(z.Text()))
			}
		}
	}
}

func lineCount(columns int, charWidth float64, frameWidth int) int {
	content := float64(frameWidth - panelPadding)
	if frameWidth <= 0 || content <= charWidth || columns == 0 {
		return 1
	}
	return int(math.Ceil(float64(columns) * charWidth / content))
}

// displayColumns counts narrow columns; East Asian wide runes take two.
func displayColumns(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
