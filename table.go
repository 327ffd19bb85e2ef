package matrixctl

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/mitchellh/go-wordwrap"
)

// DefaultPlaceholder replaces missing cells.
const DefaultPlaceholder = "-"

// Table is an ASCII table. Cells may be of any type; nil cells are shown as
// the placeholder. Cells containing newlines are expanded into several
// physical rows that are rendered without separators between them.
type Table struct {
	Headers []string
	Rows    [][]any

	// Placeholder replaces nil cells. Defaults to "-".
	Placeholder string

	// NoSep drops the separator lines between data rows.
	NoSep bool

	// MaxColumnWidth wraps cells on word boundaries when positive.
	MaxColumnWidth int
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table to w, one line per row.
func (t *Table) Render(w io.Writer) error {
	for _, line := range t.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Lines lays out the table.
func (t *Table) Lines() []string {
	placeholder := t.Placeholder
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	columns := len(t.Headers)
	for _, row := range t.Rows {
		columns = max(columns, len(row))
	}
	if columns == 0 {
		return nil
	}

	var header [][]string
	var headerInhibit map[int]bool
	if len(t.Headers) > 0 {
		cells := make([]any, len(t.Headers))
		for i, h := range t.Headers {
			cells[i] = h
		}
		header, headerInhibit = ExpandNewlines([][]string{t.stringify(cells, columns, placeholder)})
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rows = append(rows, t.stringify(row, columns, placeholder))
	}
	body, inhibit := ExpandNewlines(rows)

	widths := make([]int, columns)
	for _, part := range [][][]string{header, body} {
		for _, row := range part {
			for i, cell := range row {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	lines := make([]string, 0, 2*len(body)+len(header)+3)
	lines = append(lines, border(widths, '-'))
	if len(header) > 0 {
		for i, row := range header {
			lines = append(lines, formatRow(row, widths))
			if i < len(header)-1 && !headerInhibit[i] {
				lines = append(lines, border(widths, '-'))
			}
		}
		lines = append(lines, border(widths, '='))
	}
	for i, row := range body {
		lines = append(lines, formatRow(row, widths))
		last := i == len(body)-1
		if last {
			break
		}
		if !t.NoSep && !inhibit[i] {
			lines = append(lines, border(widths, '-'))
		}
	}
	if len(body) > 0 {
		lines = append(lines, border(widths, '-'))
	}
	return lines
}

// stringify coerces a row to strings, pads it to columns cells, and wraps
// long cells.
func (t *Table) stringify(row []any, columns int, placeholder string) []string {
	out := make([]string, columns)
	for i := range out {
		if i >= len(row) {
			out[i] = placeholder
			continue
		}
		out[i] = cellString(row[i], placeholder)
		if t.MaxColumnWidth > 0 {
			out[i] = wordwrap.WrapString(out[i], uint(t.MaxColumnWidth))
		}
	}
	return out
}

func cellString(v any, placeholder string) string {
	switch x := v.(type) {
	case nil:
		return placeholder
	case string:
		return x
	case *string:
		if x == nil {
			return placeholder
		}
		return *x
	case *int:
		if x == nil {
			return placeholder
		}
		return fmt.Sprint(*x)
	case *int64:
		if x == nil {
			return placeholder
		}
		return fmt.Sprint(*x)
	case *bool:
		if x == nil {
			return placeholder
		}
		return fmt.Sprint(*x)
	default:
		return fmt.Sprint(x)
	}
}

// ExpandNewlines splits every row whose cells contain newlines into one
// physical row per line, padding short cells with empty strings. The
// returned set holds the indices of expanded rows that must not be
// followed by a separator; the last row of each group is not in the set.
func ExpandNewlines(rows [][]string) ([][]string, map[int]bool) {
	out := make([][]string, 0, len(rows))
	inhibit := make(map[int]bool)
	for _, row := range rows {
		newlines := 0
		for _, cell := range row {
			newlines = max(newlines, strings.Count(cell, "\n"))
		}
		if newlines == 0 {
			out = append(out, row)
			continue
		}

		split := make([][]string, len(row))
		for i, cell := range row {
			split[i] = strings.Split(cell, "\n")
		}
		for line := 0; line <= newlines; line++ {
			expanded := make([]string, len(row))
			for i := range row {
				if line < len(split[i]) {
					expanded[i] = split[i][line]
				}
			}
			if line < newlines {
				inhibit[len(out)] = true
			}
			out = append(out, expanded)
		}
	}
	return out, inhibit
}

func border(widths []int, fill rune) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat(string(fill), w+2))
		b.WriteByte('+')
	}
	return b.String()
}

func formatRow(row []string, widths []int) string {
	var b strings.Builder
	b.WriteByte('|')
	for i, cell := range row {
		b.WriteByte(' ')
		b.WriteString(runewidth.FillRight(cell, widths[i]))
		b.WriteString(" |")
	}
	return b.String()
}
