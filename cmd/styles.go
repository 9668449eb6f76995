package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// styles colors CLI status lines and the sync summary.
var styles = newPalette(palette{
	title: "#7D56F4",
	ok:    "#04B575",
	err:   "#FF0000",
	warn:  "#FFA500",
	help:  "#626262",
})

type palette struct {
	title, ok, err, warn, help string
}

// Palette is the rendered form of a palette.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func newPalette(p palette) *Palette {
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return &Palette{
		title: fg(p.title).Bold(true),
		ok:    fg(p.ok).Bold(true),
		err:   fg(p.err).Bold(true),
		warn:  fg(p.warn),
		help:  fg(p.help).Italic(true),
	}
}

// summaryTable renders rows under headers in a rounded table with a bold header row.
func summaryTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.help).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Inherit(styles.title)
			}
			return s
		}).
		Render()
}
