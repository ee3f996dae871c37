package main

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/table-scroll/pkg/rows"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D7D8A2"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DDC074"))
	statusStyle = lipgloss.NewStyle().Faint(true)
	endStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#8A8A8A"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
)

const (
	columnGap    = "  "
	endOfDataMsg = "(end of data)"
	helpLine     = "j/k scroll  |  pgup/pgdown page  |  g/G top/bottom  |  +/- page size  |  r reload  |  q quit"
)

func (m model) View() string {
	lines := make([]string, 0, m.bodyHeight()+chromeLines)

	title := "table-scroll"
	if t, ok := m.controller.Target(); ok {
		title += "  " + t.String()
	}
	lines = append(lines, titleStyle.Render(m.fit(title)))

	body := m.view.rows.Slice(m.offset, m.offset+m.bodyHeight())
	for _, r := range body {
		lines = append(lines, m.fit(renderRow(r, m.widths)))
	}
	if len(body) < m.bodyHeight() && m.view.endOfData.Load() {
		lines = append(lines, endStyle.Render(endOfDataMsg))
	}
	for len(lines) < m.bodyHeight()+1 {
		lines = append(lines, "")
	}

	lines = append(lines, m.statusLine(), helpStyle.Render(m.fit(helpLine)))

	return strings.Join(lines, "\n")
}

func (m model) statusLine() string {
	if m.lastErr != nil {
		return errorStyle.Render(m.fit("error: " + m.lastErr.Error()))
	}

	st := m.controller.State()
	total := m.view.rows.Len()

	var b strings.Builder
	fmt.Fprintf(&b, "rows %d-%d of %d  |  page size %d", min(m.offset+1, total), min(m.offset+m.bodyHeight(), total), total, st.PageSize)
	switch {
	case st.IsLoading:
		b.WriteString("  |  loading")
	case m.view.endOfData.Load():
		b.WriteString("  |  " + endOfDataMsg)
	}

	return statusStyle.Render(m.fit(b.String()))
}

// fit truncates s to the terminal width.
func (m model) fit(s string) string {
	if m.width <= 0 {
		return s
	}
	return ansi.Truncate(s, m.width, "…")
}

func renderRow(r rows.Row, widths []int) string {
	cells := make([]string, len(r.Cells))
	for i, cell := range r.Cells {
		w := maxCellWidth
		if i < len(widths) {
			w = widths[i]
		}
		cell = ansi.Truncate(cell, w, "…")
		if pad := w - lipgloss.Width(cell); pad > 0 {
			cell += strings.Repeat(" ", pad)
		}
		cells[i] = cell
	}
	return strings.TrimRight(strings.Join(cells, columnGap), " ")
}
