package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/table-scroll/pkg/logging"
	"github.com/Sternrassler/table-scroll/pkg/metrics"
	"github.com/Sternrassler/table-scroll/pkg/pagination"
	"github.com/Sternrassler/table-scroll/pkg/rows"
	tea "github.com/charmbracelet/bubbletea"
)

// updateBuffer is the capacity of the fetch-to-UI message channel.
const updateBuffer = 16

// runViewer runs the interactive viewer until the user quits.
func runViewer(ctx context.Context, opts options, pageURL string) error {
	// The viewer owns the terminal: without a log file nothing is logged.
	level := logging.LogLevel(opts.LogLevel)
	if opts.LogFile == "" {
		level = logging.LevelDisabled
	}
	_, closer, err := logging.SetupFile(logging.Config{Level: level, File: opts.LogFile})
	if err != nil {
		return err
	}
	defer closer.Close()
	logger := logging.NewLogger("viewer")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, opts.MetricsAddr); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	updates := make(chan tea.Msg, updateBuffer)
	collection := rows.NewCollection()
	view := newHostView(collection)

	s, err := newSession(ctx, opts, pageURL, collection, view, sessionHooks{
		AfterSwap: func(appended []rows.Row) {
			notify(updates, rowsAppendedMsg{rows: appended})
		},
		OnError: func(_ pagination.Request, err error) {
			notify(updates, fetchFailedMsg{err: err})
		},
	})
	if err != nil {
		return err
	}
	defer s.Close()

	logger.Info().
		Str("target", s.target.String()).
		Int("page_size", opts.PageSize).
		Bool("cache", s.redis != nil).
		Msg("Viewer starting")

	p := tea.NewProgram(newModel(ctx, s.controller, s.client, view, updates), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	// Abort in-flight fetches before Close waits for them.
	cancel()

	logger.Info().Int("rows", collection.Len()).Msg("Viewer stopped")

	if runErr != nil {
		return fmt.Errorf("viewer: %w", runErr)
	}
	return nil
}
