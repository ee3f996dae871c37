package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/table-scroll/pkg/client"
	"github.com/Sternrassler/table-scroll/pkg/pagination"
	"github.com/Sternrassler/table-scroll/pkg/rows"
	"github.com/Sternrassler/table-scroll/pkg/target"
	"github.com/redis/go-redis/v9"
)

// session wires the paging pipeline of one table view.
type session struct {
	target     target.Target
	client     *client.Client
	appender   *client.Appender
	controller *pagination.Controller
	redis      *redis.Client
}

// sessionHooks are the host callbacks of a session. Both run on fetch
// goroutines.
type sessionHooks struct {
	AfterSwap func(appended []rows.Row)
	OnError   func(req pagination.Request, err error)
}

// newSession resolves pageURL and builds client, appender and controller.
// A nil view means the host has no end-of-data indicator.
func newSession(ctx context.Context, opts options, pageURL string, sink rows.Sink, view pagination.View, hooks sessionHooks) (*session, error) {
	base, t, err := target.ParseURL(pageURL)
	if err != nil {
		return nil, err
	}

	cfg := client.DefaultConfig(base)
	cfg.UserAgent = opts.UserAgent
	cfg.Timeout = opts.Timeout
	cfg.CacheTTL = opts.CacheTTL

	s := &session{target: t}

	if opts.RedisURL != "" {
		s.redis, err = openRedis(ctx, opts.RedisURL)
		if err != nil {
			return nil, err
		}
		cfg.Redis = s.redis
	}

	s.client, err = client.New(cfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create table client: %w", err)
	}

	s.appender = client.NewAppender(s.client, sink, client.AppenderConfig{AfterSwap: hooks.AfterSwap})

	pcfg := pagination.DefaultConfig(&t)
	pcfg.PageSize = opts.PageSize
	pcfg.ScrollThreshold = opts.ScrollThreshold
	pcfg.OnError = hooks.OnError

	s.controller, err = pagination.NewController(pcfg, s.appender, view)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}

	return s, nil
}

// Close waits for outstanding fetches and releases the cache connection.
func (s *session) Close() error {
	if s.appender != nil {
		s.appender.Wait()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", redisOpts.Addr, err)
	}

	return rdb, nil
}
