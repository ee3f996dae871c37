package client

import (
	"context"
	"sync"

	"github.com/Sternrassler/table-scroll/pkg/pagination"
	"github.com/Sternrassler/table-scroll/pkg/rows"
)

// AppenderConfig holds appender configuration.
type AppenderConfig struct {
	// AfterSwap runs after a page's rows were appended, outside the
	// controller lock. Hosts use it to re-initialise derived state such as
	// column widths.
	AfterSwap func(appended []rows.Row)
}

// Appender is the HTTP fetch-and-append collaborator of the paging
// controller. Each request runs on its own goroutine.
type Appender struct {
	client    *Client
	sink      rows.Sink
	afterSwap func([]rows.Row)
	wg        sync.WaitGroup
}

// NewAppender creates an appender that fetches through client and appends
// to sink.
func NewAppender(client *Client, sink rows.Sink, cfg AppenderConfig) *Appender {
	if client == nil {
		panic("client cannot be nil")
	}
	if sink == nil {
		panic("row sink cannot be nil")
	}
	return &Appender{
		client:    client,
		sink:      sink,
		afterSwap: cfg.AfterSwap,
	}
}

// FetchAppend implements pagination.FetchAppender.
func (a *Appender) FetchAppend(ctx context.Context, req pagination.Request, lc pagination.Lifecycle) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(ctx, req, lc)
	}()
}

// Wait blocks until every started fetch has reported back.
func (a *Appender) Wait() {
	a.wg.Wait()
}

func (a *Appender) run(ctx context.Context, req pagination.Request, lc pagination.Lifecycle) {
	lc.OnFetchStarting(req)

	page, err := a.client.FetchPage(ctx, req)
	if err != nil {
		lc.OnFetchFailed(req, err)
		return
	}

	applied := lc.OnFetchCompleted(req, page.Metadata, func() {
		a.sink.AppendRows(page.Rows)
	})

	if applied && a.afterSwap != nil {
		a.afterSwap(page.Rows)
	}
}
