package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is one table column. Counts, fractions and percentages are
// right-aligned so they line up under each other.
type column struct {
	title string
	right bool
}

func textCol(title string) column { return column{title: title} }
func numCol(title string) column  { return column{title: title, right: true} }

// renderTable lays rows out under cols. Short rows are padded with blanks.
// A non-nil footer is printed under a separator; progress uses it for totals.
func renderTable(cols []column, rows [][]string, footer []string) string {
	if len(cols) == 0 {
		return ""
	}

	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault

	tw := table.NewWriter()
	tw.SetStyle(style)

	titles := make([]string, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		titles[i] = c.title
		align := text.AlignLeft
		if c.right {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignFooter: align, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)
	tw.AppendHeader(padRow(len(cols), titles))
	for _, r := range rows {
		tw.AppendRow(padRow(len(cols), r))
	}
	if footer != nil {
		tw.AppendFooter(padRow(len(cols), footer))
	}
	return tw.Render()
}

func padRow(n int, vals []string) table.Row {
	row := make(table.Row, n)
	for i := range row {
		row[i] = ""
		if i < len(vals) {
			row[i] = vals[i]
		}
	}
	return row
}
