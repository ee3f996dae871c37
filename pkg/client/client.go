// Package client fetches table pages over HTTP and appends their rows for
// the paging controller.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/table-scroll/pkg/cache"
	"github.com/Sternrassler/table-scroll/pkg/logging"
	"github.com/Sternrassler/table-scroll/pkg/pagination"
	"github.com/Sternrassler/table-scroll/pkg/rows"
	"github.com/Sternrassler/table-scroll/pkg/target"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Client fetches pages of a table view.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the table server address (scheme://host[:port])
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per HTTP attempt
	Timeout time.Duration

	// Redis enables the page cache when set
	Redis *redis.Client

	// CacheTTL is the lifetime of cached pages without an Expires header
	CacheTTL time.Duration

	// RetryPolicy selects backoff per error class (default: RetryConfigForErrorClass)
	RetryPolicy RetryPolicy
}

// DefaultConfig returns a default configuration for a server.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "table-scroll/0.1.0",
		Timeout:   15 * time.Second,
		CacheTTL:  cache.DefaultTTL,
	}
}

// Page is one fetched page.
type Page struct {
	Rows       []rows.Row
	Metadata   pagination.Metadata
	StatusCode int
	FromCache  bool
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be scheme://host (got %q)", cfg.BaseURL)
	}
	cfg.BaseURL = u.Scheme + "://" + u.Host

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     logging.NewLogger("table-client"),
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	}

	return c, nil
}

// FetchPage retrieves the rows and paging metadata of a request.
//
// Continuation pages are cached and answered from cache when possible.
// Fresh loads always go to the server so a reload shows current data.
func (c *Client) FetchPage(ctx context.Context, req pagination.Request) (*Page, error) {
	endpoint := req.Endpoint()
	key := cache.PageKey{Endpoint: endpoint, Limit: req.Limit, PagingState: req.PagingState}

	if c.cache != nil && req.IsContinuation() {
		entry, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			c.logger.Debug().Str("endpoint", endpoint).Int("limit", req.Limit).Msg("Page served from cache")
			requestsTotal.WithLabelValues(endpoint, "cache").Inc()
			return c.decode(endpoint, entry.Response(), true)
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if c.cache != nil && req.IsContinuation() {
		entry, err := c.cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache page")
		}
	}

	return c.decode(endpoint, resp, false)
}

// Invalidate drops every cached page of a target.
func (c *Client) Invalidate(ctx context.Context, t target.Target) error {
	if c.cache == nil {
		return nil
	}

	deleted, err := c.cache.Purge(ctx, t.Endpoint())
	if err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}

	c.logger.Debug().Str("endpoint", t.Endpoint()).Int("deleted", deleted).Msg("Cache invalidated")
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// do performs the GET with retry, returning a 2xx response.
func (c *Client) do(ctx context.Context, req pagination.Request) (*http.Response, error) {
	endpoint := req.Endpoint()
	rawURL := req.URL(c.config.BaseURL)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("limit", req.Limit).
		Bool("continuation", req.IsContinuation()).
		Msg("Fetching page")

	var resp *http.Response

	err := retryWithBackoff(ctx, c.config.RetryPolicy, func() (ErrorClass, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return ErrorClassClient, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
		httpReq.Header.Set("Accept", "text/html")
		// The server renders only the row fragment for htmx requests.
		httpReq.Header.Set("HX-Request", "true")

		r, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return ErrorClassNetwork, &TableError{
				ErrorClass: ErrorClassNetwork,
				Endpoint:   endpoint,
				Message:    "request failed",
				Err:        err,
			}
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(r.StatusCode)).Inc()

		if errorClass := classifyStatus(r.StatusCode); errorClass != "" {
			errorsTotal.WithLabelValues(string(errorClass)).Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", r.StatusCode).
				Str("error_class", string(errorClass)).
				Msg("Table request error")

			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 4096))
			r.Body.Close()

			return errorClass, &TableError{
				StatusCode: r.StatusCode,
				ErrorClass: errorClass,
				Endpoint:   endpoint,
				Message:    r.Status,
			}
		}

		resp = r
		return "", nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) decode(endpoint string, resp *http.Response, fromCache bool) (*Page, error) {
	parsed, err := rows.ParseFragment(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &TableError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Endpoint:   endpoint,
			Message:    "invalid row fragment",
			Err:        err,
		}
	}

	rowsFetchedTotal.WithLabelValues(endpoint).Add(float64(len(parsed)))

	return &Page{
		Rows:       parsed,
		Metadata:   pagination.MetadataFromHeaders(resp.Header),
		StatusCode: resp.StatusCode,
		FromCache:  fromCache,
	}, nil
}
