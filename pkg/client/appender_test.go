package client

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/table-scroll/internal/testutil"
	"github.com/Sternrassler/table-scroll/pkg/pagination"
	"github.com/Sternrassler/table-scroll/pkg/rows"
)

// endOfDataView records the indicator state.
type endOfDataView struct {
	mu      sync.Mutex
	rows    *rows.Collection
	visible bool
}

func (v *endOfDataView) ClearRows() { v.rows.Clear() }

func (v *endOfDataView) SetEndOfData(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible = visible
}

func (v *endOfDataView) endOfData() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func newTestController(t *testing.T, mock *testutil.MockTable, afterSwap func([]rows.Row)) (*pagination.Controller, *Appender, *endOfDataView) {
	t.Helper()

	c := newTestClient(t, mock, nil)
	collection := rows.NewCollection()
	view := &endOfDataView{rows: collection}
	appender := NewAppender(c, collection, AppenderConfig{AfterSwap: afterSwap})

	ctrl, err := pagination.NewController(pagination.DefaultConfig(&orders), appender, view)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return ctrl, appender, view
}

func TestAppender_DrainsTable(t *testing.T) {
	mock := testutil.NewMockTable()
	defer mock.Close()
	mock.AddGeneratedTable("shop", "orders", 120)

	var swaps int
	ctrl, appender, view := newTestController(t, mock, func(appended []rows.Row) {
		swaps++
	})
	ctx := context.Background()

	for ctrl.RequestMore(ctx) {
		appender.Wait()
	}

	if got := view.rows.Len(); got != 120 {
		t.Errorf("rows = %d, want 120", got)
	}
	if swaps != 3 {
		t.Errorf("AfterSwap calls = %d, want 3", swaps)
	}
	if !view.endOfData() {
		t.Error("end of data indicator should be visible")
	}

	st := ctrl.State()
	if st.HasMoreData || st.IsLoading || st.PagingCursor != "" {
		t.Errorf("final state = %+v, want exhausted and idle", st)
	}

	// Row order and no overlap across pages.
	for i, r := range view.rows.Rows() {
		if want := i + 1; r.Cells[0] != strconv.Itoa(want) {
			t.Fatalf("row %d = %v, want id %d", i, r.Cells, want)
		}
	}

	if got := mock.GetRequestCount(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestAppender_FailureKeepsCursor(t *testing.T) {
	mock := testutil.NewMockTable()
	defer mock.Close()
	mock.AddGeneratedTable("shop", "orders", 120)

	var failures []error
	c := newTestClient(t, mock, nil)
	collection := rows.NewCollection()
	appender := NewAppender(c, collection, AppenderConfig{})

	cfg := pagination.DefaultConfig(&orders)
	cfg.OnError = func(_ pagination.Request, err error) { failures = append(failures, err) }
	ctrl, err := pagination.NewController(cfg, appender, nil)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	ctx := context.Background()

	ctrl.RequestMore(ctx)
	appender.Wait()
	cursor := ctrl.State().PagingCursor

	mock.FailNext(http.StatusBadRequest)
	ctrl.RequestMore(ctx)
	appender.Wait()

	st := ctrl.State()
	if st.IsLoading {
		t.Error("failure should release the loading guard")
	}
	if st.PagingCursor != cursor {
		t.Errorf("cursor = %q, want %q", st.PagingCursor, cursor)
	}
	if len(failures) != 1 {
		t.Fatalf("OnError calls = %d, want 1", len(failures))
	}
	if collection.Len() != 50 {
		t.Errorf("rows = %d, want 50", collection.Len())
	}

	// The next trigger retries from the same place.
	ctrl.RequestMore(ctx)
	appender.Wait()
	if got := mock.GetQueries()[2].Get("paging_state"); got != cursor {
		t.Errorf("retry paging_state = %q, want %q", got, cursor)
	}
	if collection.Len() != 100 {
		t.Errorf("rows = %d, want 100", collection.Len())
	}
}

func TestAppender_PageSizeChangeDiscardsInFlight(t *testing.T) {
	mock := testutil.NewMockTable()
	defer mock.Close()
	mock.AddGeneratedTable("shop", "orders", 120)
	mock.SetDelay(50 * time.Millisecond)

	var swapped [][]rows.Row
	var mu sync.Mutex
	ctrl, appender, view := newTestController(t, mock, func(appended []rows.Row) {
		mu.Lock()
		swapped = append(swapped, appended)
		mu.Unlock()
	})
	ctx := context.Background()

	ctrl.RequestMore(ctx)
	if err := ctrl.OnPageSizeChanged(ctx, 25); err != nil {
		t.Fatalf("OnPageSizeChanged() error = %v", err)
	}
	appender.Wait()

	if got := view.rows.Len(); got != 25 {
		t.Errorf("rows = %d, want 25 (only the new page size)", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(swapped) != 1 || len(swapped[0]) != 25 {
		t.Errorf("AfterSwap should run once for the 25-row page, got %d calls", len(swapped))
	}

	st := ctrl.State()
	if st.PageSize != 25 || st.PagingCursor != testutil.EncodePagingState(25) {
		t.Errorf("state = %+v", st)
	}
}

func TestNewAppender_PanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewAppender(nil, ...) should panic")
		}
	}()
	NewAppender(nil, rows.NewCollection(), AppenderConfig{})
}
