// Package table renders rows of text as an ASCII table. Cells may contain
// ANSI color sequences, which are ignored when measuring widths.
package table

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Alignment of text within a column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func width(s string) int {
	return utf8.RuneCountInString(stripAnsi(s))
}

// Table accumulates a header and rows, then writes them with Render.
type Table struct {
	w               io.Writer
	header          []string
	rows            [][]string
	columnAlignment []Alignment
	headerAlignment []Alignment
}

// NewTable returns a table that renders to w.
func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

func (t *Table) WithHeader(header []string) *Table {
	t.header = header
	return t
}

func (t *Table) WithColumnAlignment(alignment []Alignment) *Table {
	t.columnAlignment = alignment
	return t
}

func (t *Table) WithHeaderAlignment(alignment []Alignment) *Table {
	t.headerAlignment = alignment
	return t
}

func (t *Table) WithRows(rows [][]string) *Table {
	t.rows = append(t.rows, rows...)
	return t
}

func (t *Table) Append(row []string) *Table {
	t.rows = append(t.rows, row)
	return t
}

// Render writes the table. Errors from the writer are ignored.
func (t *Table) Render() {
	widths := t.columnWidths()
	if len(widths) == 0 {
		return
	}
	var sb strings.Builder
	separator := t.separator(widths)
	sb.WriteString(separator)
	if len(t.header) > 0 {
		t.writeRow(&sb, t.header, widths, t.headerAlignment)
		sb.WriteString(separator)
	}
	for _, row := range t.rows {
		t.writeRow(&sb, row, widths, t.columnAlignment)
	}
	sb.WriteString(separator)
	io.WriteString(t.w, sb.String())
}

func (t *Table) columnWidths() []int {
	var widths []int
	measure := func(row []string) {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], width(cell))
		}
	}
	measure(t.header)
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

func (t *Table) separator(widths []int) string {
	var sb strings.Builder
	sb.WriteString("+")
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2))
		sb.WriteString("+")
	}
	sb.WriteString("\n")
	return sb.String()
}

func (t *Table) writeRow(sb *strings.Builder, row []string, widths []int, alignment []Alignment) {
	sb.WriteString("|")
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		align := AlignLeft
		if i < len(alignment) {
			align = alignment[i]
		}
		sb.WriteString(" ")
		sb.WriteString(pad(cell, w, align))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

func pad(s string, w int, align Alignment) string {
	gap := w - width(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + s
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}
