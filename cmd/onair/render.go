package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/llehouerou/onair/internal/coordinator"
)

const maxSongWidth = 60

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// styles renders with color only when writing to a terminal.
type styles struct {
	colorize bool
	label    lipgloss.Style
	dim      lipgloss.Style
	bold     lipgloss.Style
	loading  lipgloss.Style
	playing  lipgloss.Style
	errored  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		colorize: shouldColorize(w),
		label:    r.NewStyle().Foreground(lipgloss.Color("245")).Width(9),
		dim:      r.NewStyle().Foreground(lipgloss.Color("240")),
		bold:     r.NewStyle().Bold(true),
		loading:  r.NewStyle().Foreground(lipgloss.Color("214")),
		playing:  r.NewStyle().Foreground(lipgloss.Color("42")),
		errored:  r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

func (s styles) render(st lipgloss.Style, str string) string {
	if !s.colorize {
		return str
	}
	return st.Render(str)
}

func (s styles) indicator(ind coordinator.Indicator) string {
	switch ind {
	case coordinator.IndicatorLoading:
		return s.render(s.loading, "◌")
	case coordinator.IndicatorPlaying:
		return s.render(s.playing, "●")
	case coordinator.IndicatorError:
		return s.render(s.errored, "✗")
	case coordinator.IndicatorStopped:
		return s.render(s.dim, "■")
	default:
		return s.render(s.dim, "○")
	}
}

func (s styles) field(label, value string) string {
	if !s.colorize {
		return "  " + runewidth.FillRight(label+":", 9) + value
	}
	return "  " + s.label.Render(label+":") + value
}

func truncateSong(song string) string {
	return runewidth.Truncate(song, maxSongWidth, "…")
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
