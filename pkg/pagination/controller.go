package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/table-scroll/pkg/logging"
	"github.com/Sternrassler/table-scroll/pkg/target"
	"github.com/rs/zerolog"
)

// ErrInvalidPageSize is returned for a page size that is not positive.
var ErrInvalidPageSize = errors.New("page size must be positive")

// ErrNoFetcher is returned when a controller is created without a fetcher.
var ErrNoFetcher = errors.New("fetch appender is required")

// FetchAppender retrieves the rows of a request and appends them to the
// visible row collection. FetchAppend must not block on the network; it
// reports progress through the lifecycle callbacks, exactly one of
// OnFetchCompleted or OnFetchFailed per request.
type FetchAppender interface {
	FetchAppend(ctx context.Context, req Request, lc Lifecycle)
}

// Lifecycle receives fetch progress from a FetchAppender.
type Lifecycle interface {
	// OnFetchStarting is called immediately before the request is sent.
	OnFetchStarting(req Request)

	// OnFetchCompleted is called after a successful response. swap appends
	// the fetched rows; it runs only if the request is still current and
	// the return value reports whether it did.
	OnFetchCompleted(req Request, meta Metadata, swap func()) bool

	// OnFetchFailed is called when the request could not be completed.
	OnFetchFailed(req Request, err error)
}

// View is the part of the host page the controller drives directly.
// Methods are called with the controller lock held and must not call back
// into the controller.
type View interface {
	// ClearRows empties the row container.
	ClearRows()

	// SetEndOfData shows or hides the "end of data" indicator.
	SetEndOfData(visible bool)
}

// Config holds controller configuration.
type Config struct {
	// Target is the table being paged. Nil means the page is not a table
	// view; every fetch attempt is then a no-op.
	Target *target.Target

	// PageSize is the initial number of rows per fetch.
	PageSize int

	// ScrollThreshold is the distance from the bottom below which a scroll
	// event requests more rows.
	ScrollThreshold float64

	// OnError receives failures of current requests, after they are logged.
	OnError func(req Request, err error)
}

// DefaultConfig returns the default configuration for a target.
func DefaultConfig(t *target.Target) Config {
	return Config{
		Target:          t,
		PageSize:        DefaultPageSize,
		ScrollThreshold: DefaultScrollThreshold,
	}
}

// Controller is the paging state machine of one table view.
type Controller struct {
	mu      sync.Mutex
	state   State
	ticket  uint64 // last issued ticket
	current uint64 // ticket of the outstanding request, 0 if none
	adopted bool   // the outstanding request is an untracked fresh load

	target  *target.Target
	fetcher FetchAppender
	view    View
	config  Config
	logger  zerolog.Logger
}

// NewController creates a controller in its initial state. A nil view is
// replaced by one that does nothing.
func NewController(cfg Config, fetcher FetchAppender, view View) (*Controller, error) {
	if fetcher == nil {
		return nil, ErrNoFetcher
	}
	if cfg.PageSize < 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidPageSize, cfg.PageSize)
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.ScrollThreshold <= 0 {
		cfg.ScrollThreshold = DefaultScrollThreshold
	}
	if view == nil {
		view = nopView{}
	}

	logger := logging.NewLogger("pagination")
	var tgt *target.Target
	if cfg.Target != nil {
		t := *cfg.Target
		tgt = &t
		logger = logger.With().Str("target", t.String()).Logger()
	}

	return &Controller{
		state:   initialState(cfg.PageSize),
		target:  tgt,
		fetcher: fetcher,
		view:    view,
		config:  cfg,
		logger:  logger,
	}, nil
}

// State returns a snapshot of the paging state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Target returns the resolved target, if any.
func (c *Controller) Target() (target.Target, bool) {
	if c.target == nil {
		return target.Target{}, false
	}
	return *c.target, true
}

// RequestMore issues a fetch for the next page. It is a no-op when the
// target is unresolved, a fetch is outstanding, or the data is exhausted.
// It reports whether a fetch was issued.
func (c *Controller) RequestMore(ctx context.Context) bool {
	c.mu.Lock()
	req, ok := c.nextRequestLocked()
	c.mu.Unlock()

	if !ok {
		return false
	}

	c.fetcher.FetchAppend(ctx, req, c)
	return true
}

// OnPageSizeChanged applies a new page size: the row container is cleared,
// paging restarts from the beginning and the first page is requested
// immediately. An outstanding fetch is superseded; its response is ignored.
func (c *Controller) OnPageSizeChanged(ctx context.Context, size int) error {
	if size <= 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidPageSize, size)
	}

	c.mu.Lock()
	req, ok := c.restartLocked("page_size", size)
	c.mu.Unlock()

	if ok {
		c.fetcher.FetchAppend(ctx, req, c)
	}
	return nil
}

// Reload restarts paging from the beginning at the current page size.
func (c *Controller) Reload(ctx context.Context) {
	c.mu.Lock()
	req, ok := c.restartLocked("reload", c.state.PageSize)
	c.mu.Unlock()

	if ok {
		c.fetcher.FetchAppend(ctx, req, c)
	}
}

// OnScrollProximity requests more rows when the scroll position is within
// the threshold of the bottom. It is safe to call on every scroll tick.
func (c *Controller) OnScrollProximity(ctx context.Context, distanceFromBottom float64) bool {
	if distanceFromBottom >= c.config.ScrollThreshold {
		return false
	}
	return c.RequestMore(ctx)
}

// OnFetchStarting implements Lifecycle. A request without a paging state is
// a fresh load and resets exhaustion and cursor. A fresh load the controller
// did not issue supersedes the outstanding request and becomes current.
func (c *Controller) OnFetchStarting(req Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if req.IsContinuation() {
		if !c.isCurrentLocked(req) {
			c.discardLocked("starting", req)
		}
		return
	}

	if !c.isCurrentLocked(req) {
		if c.issuedLocked(req) {
			c.discardLocked("starting", req)
			return
		}
		c.adoptLocked(req)
	}

	c.state.HasMoreData = true
	c.state.PagingCursor = ""
	c.view.SetEndOfData(false)
	resetsTotal.WithLabelValues("fresh_load").Inc()
}

// OnFetchCompleted implements Lifecycle.
func (c *Controller) OnFetchCompleted(req Request, meta Metadata, swap func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrentLocked(req) {
		c.discardLocked("completed", req)
		return false
	}

	c.current = 0
	c.adopted = false
	c.state.IsLoading = false

	if swap != nil {
		swap()
	}

	switch {
	case meta.HasMorePages == MorePagesFalse:
		c.state.HasMoreData = false
		c.state.PagingCursor = ""
		c.view.SetEndOfData(true)
		exhaustionsTotal.Inc()
		c.logger.Debug().Uint64("ticket", req.Ticket).Msg("Data exhausted")
	case meta.ContinuationToken != "":
		c.state.PagingCursor = meta.ContinuationToken
		c.logger.Debug().
			Uint64("ticket", req.Ticket).
			Int("token_len", len(meta.ContinuationToken)).
			Msg("Cursor advanced")
	default:
		c.logger.Debug().
			Uint64("ticket", req.Ticket).
			Str("has_more_pages", meta.HasMorePages.String()).
			Msg("Response carried no paging signal")
	}

	return true
}

// OnFetchFailed implements Lifecycle. The fetch guard is released; cursor
// and exhaustion are kept so the next trigger retries from the same place.
func (c *Controller) OnFetchFailed(req Request, err error) {
	c.mu.Lock()
	if !c.isCurrentLocked(req) {
		c.discardLocked("failed", req)
		c.mu.Unlock()
		c.logger.Warn().
			Err(err).
			Uint64("ticket", req.Ticket).
			Int("limit", req.Limit).
			Msg("Superseded request failed")
		return
	}
	c.current = 0
	c.adopted = false
	c.state.IsLoading = false
	c.mu.Unlock()

	fetchFailuresTotal.Inc()
	c.logger.Error().
		Err(err).
		Uint64("ticket", req.Ticket).
		Int("limit", req.Limit).
		Bool("continuation", req.IsContinuation()).
		Msg("Error loading data")

	if c.config.OnError != nil {
		c.config.OnError(req, err)
	}
}

func (c *Controller) nextRequestLocked() (Request, bool) {
	switch {
	case c.target == nil:
		guardRejectionsTotal.WithLabelValues("unresolved").Inc()
		return Request{}, false
	case c.state.IsLoading:
		guardRejectionsTotal.WithLabelValues("loading").Inc()
		return Request{}, false
	case !c.state.HasMoreData:
		guardRejectionsTotal.WithLabelValues("exhausted").Inc()
		return Request{}, false
	}

	c.ticket++
	c.current = c.ticket
	c.adopted = false
	c.state.IsLoading = true

	req := Request{
		Ticket:      c.ticket,
		Target:      *c.target,
		Limit:       c.state.PageSize,
		PagingState: c.state.PagingCursor,
	}

	fetchesIssuedTotal.WithLabelValues(requestKind(req)).Inc()
	c.logger.Debug().
		Uint64("ticket", req.Ticket).
		Int("limit", req.Limit).
		Bool("continuation", req.IsContinuation()).
		Msg("Requesting more rows")

	return req, true
}

// restartLocked clears the view, resets paging at size and issues the first
// request. An outstanding fetch is superseded.
func (c *Controller) restartLocked(cause string, size int) (Request, bool) {
	if c.state.IsLoading {
		c.logger.Debug().
			Uint64("superseded_ticket", c.current).
			Str("cause", cause).
			Int("page_size", size).
			Msg("Paging restarted while loading")
	}
	c.resetLocked(size)
	resetsTotal.WithLabelValues(cause).Inc()
	return c.nextRequestLocked()
}

func (c *Controller) resetLocked(pageSize int) {
	c.current = 0
	c.adopted = false
	c.state = initialState(pageSize)
	c.view.ClearRows()
	c.view.SetEndOfData(false)
}

func (c *Controller) isCurrentLocked(req Request) bool {
	if c.current != 0 {
		return req.Ticket == c.current
	}
	return c.adopted && req.Ticket == 0
}

// issuedLocked reports whether req carries a ticket this controller handed
// out.
func (c *Controller) issuedLocked(req Request) bool {
	return req.Ticket != 0 && req.Ticket <= c.ticket
}

// adoptLocked makes an externally started fresh load the current request.
func (c *Controller) adoptLocked(req Request) {
	if c.state.IsLoading {
		c.logger.Debug().
			Uint64("superseded_ticket", c.current).
			Uint64("ticket", req.Ticket).
			Msg("External fresh load supersedes outstanding request")
	}
	if req.Ticket > c.ticket {
		c.ticket = req.Ticket
	}
	c.current = req.Ticket
	c.adopted = req.Ticket == 0
	c.state.IsLoading = true
}

func (c *Controller) discardLocked(callback string, req Request) {
	staleResponsesTotal.WithLabelValues(callback).Inc()
	c.logger.Debug().
		Str("callback", callback).
		Uint64("ticket", req.Ticket).
		Uint64("current_ticket", c.current).
		Msg("Ignoring superseded request")
}

type nopView struct{}

func (nopView) ClearRows() {}
func (nopView) SetEndOfData(bool) {}
