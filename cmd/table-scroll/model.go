package main

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/Sternrassler/table-scroll/pkg/pagination"
	"github.com/Sternrassler/table-scroll/pkg/rows"
	"github.com/Sternrassler/table-scroll/pkg/target"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// pageSizeChoices are the options of the page-size selector.
var pageSizeChoices = []int{25, 50, 100, 200}

// maxCellWidth caps a column's rendered width.
const maxCellWidth = 40

// chromeLines is the number of lines around the table body: title, status
// and help.
const chromeLines = 3

// Messages delivered from fetch goroutines.
type (
	rowsAppendedMsg struct{ rows []rows.Row }
	fetchFailedMsg  struct{ err error }
	reloadedMsg     struct{ err error }
)

// invalidator drops cached pages of a target before a reload.
type invalidator interface {
	Invalidate(ctx context.Context, t target.Target) error
}

// hostView is the viewer's side of pagination.View. The controller calls it
// under its lock, so it only touches the row collection and an atomic flag.
type hostView struct {
	rows      *rows.Collection
	endOfData atomic.Bool
}

func newHostView(collection *rows.Collection) *hostView {
	return &hostView{rows: collection}
}

// ClearRows implements pagination.View.
func (v *hostView) ClearRows() {
	v.rows.Clear()
}

// SetEndOfData implements pagination.View.
func (v *hostView) SetEndOfData(visible bool) {
	v.endOfData.Store(visible)
}

// notify delivers msg to the program without blocking the fetch goroutine.
// A full channel drops the message; a refresh is already pending then.
func notify(updates chan<- tea.Msg, msg tea.Msg) {
	select {
	case updates <- msg:
	default:
	}
}

// waitForUpdate waits for the next message from a fetch goroutine.
func waitForUpdate(updates <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

// model is the bubbletea model of the table viewer.
type model struct {
	ctx        context.Context
	controller *pagination.Controller
	cache      invalidator
	view       *hostView
	updates    <-chan tea.Msg

	offset  int
	width   int
	height  int
	widths  []int
	lastErr error
}

func newModel(ctx context.Context, controller *pagination.Controller, cache invalidator, view *hostView, updates <-chan tea.Msg) model {
	return model{
		ctx:        ctx,
		controller: controller,
		cache:      cache,
		view:       view,
		updates:    updates,
	}
}

// Init requests the first page and starts listening for fetch results.
func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.requestMore(),
		waitForUpdate(m.updates),
		tea.HideCursor,
	)
}

func (m model) requestMore() tea.Cmd {
	return func() tea.Msg {
		m.controller.RequestMore(m.ctx)
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clampOffset()
		m.checkProximity()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case rowsAppendedMsg:
		m.widths = widenColumns(m.widths, msg.rows)
		m.lastErr = nil
		m.checkProximity()
		return m, waitForUpdate(m.updates)

	case fetchFailedMsg:
		m.lastErr = msg.err
		return m, waitForUpdate(m.updates)

	case reloadedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		}
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	body := m.bodyHeight()

	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "down", "j":
		m.scroll(1)
	case "up", "k":
		m.scroll(-1)
	case "pgdown", " ", "f":
		m.scroll(body)
	case "pgup", "b":
		m.scroll(-body)
	case "home", "g":
		m.offset = 0
	case "end", "G":
		m.offset = m.maxOffset()
	case "+", "=":
		m.changePageSize(1)
	case "-":
		m.changePageSize(-1)
	case "r":
		m.resetView()
		return m, m.reload()
	default:
		return m, nil
	}

	m.checkProximity()
	return m, nil
}

func (m *model) scroll(delta int) {
	m.offset += delta
	m.clampOffset()
}

func (m *model) clampOffset() {
	m.offset = max(0, min(m.offset, m.maxOffset()))
}

func (m model) maxOffset() int {
	return max(0, m.view.rows.Len()-m.bodyHeight())
}

func (m model) bodyHeight() int {
	return max(1, m.height-chromeLines)
}

// distanceFromBottom is the number of loaded rows below the viewport.
func (m model) distanceFromBottom() int {
	return max(0, m.view.rows.Len()-(m.offset+m.bodyHeight()))
}

func (m model) checkProximity() {
	m.controller.OnScrollProximity(m.ctx, float64(m.distanceFromBottom()))
}

// changePageSize moves the selector step choices up or down.
func (m *model) changePageSize(step int) {
	current := m.controller.State().PageSize

	idx := slices.Index(pageSizeChoices, current)
	if idx < 0 {
		// A configured size outside the choices snaps to the nearest one.
		idx, _ = slices.BinarySearch(pageSizeChoices, current)
		if step > 0 {
			idx--
		}
	}

	next := max(0, min(idx+step, len(pageSizeChoices)-1))
	if pageSizeChoices[next] == current {
		return
	}

	m.resetView()
	if err := m.controller.OnPageSizeChanged(m.ctx, pageSizeChoices[next]); err != nil {
		m.lastErr = err
	}
}

func (m *model) resetView() {
	m.offset = 0
	m.widths = nil
	m.lastErr = nil
}

// reload invalidates cached pages and restarts paging from the beginning.
func (m model) reload() tea.Cmd {
	ctx, controller, cache := m.ctx, m.controller, m.cache
	return func() tea.Msg {
		var err error
		if t, ok := controller.Target(); ok && cache != nil {
			err = cache.Invalidate(ctx, t)
		}
		controller.Reload(ctx)
		return reloadedMsg{err: err}
	}
}

// widenColumns grows column widths to fit rows.
func widenColumns(widths []int, appended []rows.Row) []int {
	for _, r := range appended {
		for i, cell := range r.Cells {
			w := min(lipgloss.Width(cell), maxCellWidth)
			if i >= len(widths) {
				widths = append(widths, w)
				continue
			}
			widths[i] = max(widths[i], w)
		}
	}
	return widths
}
