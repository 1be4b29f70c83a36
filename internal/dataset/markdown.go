package dataset

import "strings"

// Markdown renders up to maxRows data rows as a pipe table. maxRows <= 0
// renders every row. Cells containing pipes are escaped so the table stays
// parseable.
func (t *Table) Markdown(maxRows int) string {
	rows := t.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return RenderMarkdown(t.Headers, rows)
}

// RenderMarkdown renders headers and rows as a markdown pipe table.
// An empty row set still renders the header and separator lines.
func RenderMarkdown(headers []string, rows [][]string) string {
	var b strings.Builder

	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" ")
			b.WriteString(escapeCell(cell))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	b.WriteString("|")
	for range headers {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

func escapeCell(cell string) string {
	cell = strings.ReplaceAll(cell, "|", "\\|")
	return strings.ReplaceAll(cell, "\n", " ")
}
