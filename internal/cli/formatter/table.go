package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const colGap = 2

// RenderTable renders an aligned table with a header separator line.
// Column widths follow the widest visible cell, measured so ANSI escape
// sequences do not skew alignment.
func RenderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	cols := len(headers)

	widths := make([]int, cols)
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < cols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for i, h := range headers {
		writeCell(&b, render(StyleHeader, h), lipgloss.Width(h), widths[i], i < cols-1)
	}
	b.WriteString("\n")
	for i, w := range widths {
		writeCell(&b, render(StyleDim, strings.Repeat("─", w)), w, w, i < cols-1)
	}
	b.WriteString("\n")

	for _, row := range rows {
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			writeCell(&b, cell, lipgloss.Width(cell), widths[i], i < cols-1)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeCell(b *strings.Builder, cell string, visible, width int, pad bool) {
	b.WriteString(cell)
	if pad {
		n := width - visible
		if n < 0 {
			n = 0
		}
		b.WriteString(strings.Repeat(" ", n+colGap))
	}
}
