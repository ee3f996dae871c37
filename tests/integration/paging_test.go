//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/table-scroll/internal/testutil"
	"github.com/Sternrassler/table-scroll/pkg/cache"
	"github.com/Sternrassler/table-scroll/pkg/client"
	"github.com/Sternrassler/table-scroll/pkg/pagination"
	"github.com/Sternrassler/table-scroll/pkg/rows"
	"github.com/Sternrassler/table-scroll/pkg/target"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

type pipeline struct {
	client     *client.Client
	appender   *client.Appender
	controller *pagination.Controller
	rows       *rows.Collection
	target     target.Target
}

func newPipeline(t *testing.T, mock *testutil.MockTable, redisClient *redis.Client) *pipeline {
	t.Helper()

	base, tgt, err := target.ParseURL(mock.ViewURL("shop", "orders"))
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}

	cfg := client.DefaultConfig(base)
	cfg.Redis = redisClient
	cfg.UserAgent = "table-scroll-integration/1.0"
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	c.SetHTTPClient(&http.Client{Timeout: 10 * time.Second})

	collection := rows.NewCollection()
	appender := client.NewAppender(c, collection, client.AppenderConfig{})

	ctrl, err := pagination.NewController(pagination.DefaultConfig(&tgt), appender, nil)
	if err != nil {
		t.Fatalf("Failed to create controller: %v", err)
	}

	return &pipeline{client: c, appender: appender, controller: ctrl, rows: collection, target: tgt}
}

func (p *pipeline) drain(ctx context.Context) {
	for p.controller.RequestMore(ctx) {
		p.appender.Wait()
	}
}

// TestFullPagingFlow drains a table, reloads it and checks which pages the
// cache answered.
func TestFullPagingFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockTable()
	defer mock.Close()
	mock.AddGeneratedTable("shop", "orders", 120)

	p := newPipeline(t, mock, redisClient)
	ctx := context.Background()

	// Pass 1: every page comes from the server.
	p.drain(ctx)
	if p.rows.Len() != 120 {
		t.Fatalf("rows after first drain = %d, want 120", p.rows.Len())
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("server requests = %d, want 3", mock.GetRequestCount())
	}

	// Pass 2: the fresh load goes to the server, continuations hit the cache.
	p.controller.Reload(ctx)
	p.appender.Wait()
	p.drain(ctx)

	if p.rows.Len() != 120 {
		t.Errorf("rows after reload = %d, want 120", p.rows.Len())
	}
	if mock.GetRequestCount() != 4 {
		t.Errorf("server requests = %d, want 4 (only the fresh load)", mock.GetRequestCount())
	}

	// Pass 3: after invalidation everything is fetched again.
	if err := p.client.Invalidate(ctx, p.target); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	p.controller.Reload(ctx)
	p.appender.Wait()
	p.drain(ctx)

	if mock.GetRequestCount() != 7 {
		t.Errorf("server requests = %d, want 7", mock.GetRequestCount())
	}

	st := p.controller.State()
	if st.HasMoreData || st.IsLoading || st.PagingCursor != "" {
		t.Errorf("final state = %+v, want exhausted and idle", st)
	}
}

// TestPageSizeChangeUsesSeparateCacheEntries checks that pages fetched with
// different limits never answer each other.
func TestPageSizeChangeUsesSeparateCacheEntries(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockTable()
	defer mock.Close()
	mock.AddGeneratedTable("shop", "orders", 100)

	p := newPipeline(t, mock, redisClient)
	ctx := context.Background()

	p.drain(ctx)
	first := mock.GetRequestCount()

	if err := p.controller.OnPageSizeChanged(ctx, 25); err != nil {
		t.Fatalf("OnPageSizeChanged() error = %v", err)
	}
	p.appender.Wait()
	p.drain(ctx)

	if p.rows.Len() != 100 {
		t.Errorf("rows = %d, want 100", p.rows.Len())
	}
	if got := mock.GetRequestCount() - first; got != 4 {
		t.Errorf("requests at limit 25 = %d, want 4", got)
	}
	for _, q := range mock.GetQueries()[first:] {
		if q.Get("limit") != "25" {
			t.Errorf("limit = %q, want 25", q.Get("limit"))
		}
	}
}

// TestCacheManagerPurge exercises SCAN based purging against a real server.
func TestCacheManagerPurge(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	m := cache.NewManager(redisClient, time.Minute)

	entry := &cache.PageEntry{
		Data:       []byte("<tr><td>1</td></tr>"),
		StatusCode: http.StatusOK,
		Headers:    http.Header{"X-Has-More-Pages": []string{"false"}},
		Expires:    time.Now().Add(time.Minute),
		CachedAt:   time.Now(),
	}

	for i, state := range []string{"a", "b", "c"} {
		key := cache.PageKey{Endpoint: "/view/shop/orders", Limit: 50 + i, PagingState: state}
		if err := m.Set(ctx, key, entry); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	other := cache.PageKey{Endpoint: "/view/shop/customers", Limit: 50, PagingState: "a"}
	if err := m.Set(ctx, other, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	deleted, err := m.Purge(ctx, "/view/shop/orders")
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	if _, err := m.Get(ctx, other); err != nil {
		t.Errorf("other endpoint should survive purge: %v", err)
	}
}
