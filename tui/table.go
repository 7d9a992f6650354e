package tui

import (
	"github.com/cloudhut/kafka-lag-monitor/minion"
	"github.com/cloudhut/kafka-lag-monitor/render"
	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type theme struct {
	background tcell.Color
	text       tcell.Color
	header     tcell.Color
}

var (
	darkTheme  = theme{background: tcell.ColorBlack, text: tcell.ColorWhite, header: tcell.ColorYellow}
	lightTheme = theme{background: tcell.ColorWhite, text: tcell.ColorBlack, header: tcell.ColorNavy}
)

// fillTable replaces the table content with a header row and one row per aggregated lag row.
func fillTable(table *tview.Table, rows []minion.Row, th theme) {
	table.Clear()
	table.SetBackgroundColor(th.background)

	for i, column := range render.Columns {
		table.SetCell(0, i, tview.NewTableCell(column).
			SetTextColor(th.header).
			SetBackgroundColor(th.background).
			SetAttributes(tcell.AttrBold).
			SetAlign(columnAlign(i)).
			SetSelectable(false))
	}

	for r, row := range rows {
		values := []string{
			tview.Escape(row.Group),
			tview.Escape(row.Topic),
			humanize.Comma(int64(row.PartitionCount)),
			humanize.CommafWithDigits(row.LagMean, 2),
			humanize.Comma(row.LagMax),
		}
		for i, value := range values {
			table.SetCell(r+1, i, tview.NewTableCell(value).
				SetTextColor(th.text).
				SetBackgroundColor(th.background).
				SetAlign(columnAlign(i)).
				SetExpansion(1))
		}
	}
}

func columnAlign(column int) int {
	if column >= 2 {
		return tview.AlignRight
	}
	return tview.AlignLeft
}
