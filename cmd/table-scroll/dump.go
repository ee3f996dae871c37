package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/table-scroll/pkg/logging"
	"github.com/Sternrassler/table-scroll/pkg/pagination"
	"github.com/Sternrassler/table-scroll/pkg/rows"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newDumpCommand creates the headless export command.
func newDumpCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <view-url>",
		Short: "Page through a whole table and write it as TSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(v)
			if err != nil {
				return err
			}

			_, closer, err := logging.SetupFile(logging.Config{
				Level:  logging.LogLevel(opts.LogLevel),
				Output: os.Stderr,
				File:   opts.LogFile,
			})
			if err != nil {
				return err
			}
			defer closer.Close()

			n, err := runDump(cmd.Context(), opts, args[0], cmd.OutOrStdout())
			if err != nil {
				return err
			}
			logger := logging.NewLogger("dump")
			logger.Info().Int("rows", n).Msg("Dump complete")
			return nil
		},
	}
}

var errNoProgress = errors.New("server returned neither a paging state nor an end of data signal")

// tsvSink writes appended rows as tab-separated lines.
type tsvSink struct {
	w     *csv.Writer
	count int
	err   error
}

func newTSVSink(out io.Writer) *tsvSink {
	w := csv.NewWriter(out)
	w.Comma = '\t'
	return &tsvSink{w: w}
}

// AppendRows implements rows.Sink.
func (s *tsvSink) AppendRows(appended []rows.Row) {
	if s.err != nil {
		return
	}
	for _, r := range appended {
		if err := s.w.Write(r.Cells); err != nil {
			s.err = err
			return
		}
	}
	s.w.Flush()
	s.err = s.w.Error()
	s.count += len(appended)
}

// runDump drains the table behind pageURL into out and returns the number of
// rows written. Fetches run one at a time; the first failure stops the dump.
func runDump(ctx context.Context, opts options, pageURL string, out io.Writer) (int, error) {
	sink := newTSVSink(out)

	var failure error
	s, err := newSession(ctx, opts, pageURL, sink, nil, sessionHooks{
		OnError: func(_ pagination.Request, err error) { failure = err },
	})
	if err != nil {
		return 0, err
	}
	defer s.Close()

	cursor := s.controller.State().PagingCursor
	for s.controller.RequestMore(ctx) {
		// Wait orders the fetch goroutine's writes before the reads below.
		s.appender.Wait()

		if failure != nil {
			return sink.count, fmt.Errorf("load rows: %w", failure)
		}
		if sink.err != nil {
			return sink.count, fmt.Errorf("write rows: %w", sink.err)
		}
		if err := ctx.Err(); err != nil {
			return sink.count, err
		}

		// Without a token or an end signal the same page would be fetched
		// again forever.
		st := s.controller.State()
		if st.HasMoreData && st.PagingCursor == cursor {
			return sink.count, errNoProgress
		}
		cursor = st.PagingCursor
	}

	return sink.count, nil
}
