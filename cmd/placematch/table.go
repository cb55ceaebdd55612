package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// maxCellWidth bounds address and URL columns; longer cells wrap.
const maxCellWidth = 48

// renderTable draws rows under headers. Short rows are padded and extra
// cells are dropped. Columns default to left alignment.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{
			Number:           i + 1,
			Align:            text.AlignLeft,
			AlignHeader:      text.AlignLeft,
			WidthMax:         maxCellWidth,
			WidthMaxEnforcer: text.WrapSoft,
		}
		if i < len(aligns) && aligns[i] == alignRight {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func toRow(cells []string, columns int) table.Row {
	row := make(table.Row, columns)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}
