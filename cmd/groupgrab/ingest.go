package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iconidentify/groupgrab/internal/chat"
	"github.com/iconidentify/groupgrab/internal/domain"
)

// ingestSummary totals the outcomes of an ingest run.
type ingestSummary struct {
	Events   int
	Messages int
	Ignored  int
	Recorded int
	Skipped  int
	Failed   int
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [file]",
		Short: "Process a stream of chat events from a file or stdin",
		Long: `ingest reads JSON chat events (one per line) and runs each through the
archive pipeline in order. With no file, or "-", events are read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open events file: %w", err)
				}
				defer f.Close()
				in = f
			}

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			a.dispatcher.Start()
			defer a.dispatcher.Stop(cfg.Fetch.Timeout + 30*time.Second)

			var sum ingestSummary
			dec := chat.NewDecoder(in)
			for {
				ev, err := dec.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					sum.print(cmd.OutOrStdout())
					return fmt.Errorf("event %d: %w", sum.Events+1, err)
				}

				report, err := a.dispatcher.SubmitWait(ctx, ev)
				if err != nil {
					return fmt.Errorf("process event %d: %w", sum.Events+1, err)
				}

				sum.Events++
				sum.Messages += report.Messages
				sum.Ignored += report.Ignored
				sum.Recorded += report.Count(domain.URLStateRecorded)
				sum.Skipped += report.Count(domain.URLStateSkipped)
				sum.Failed += report.Count(domain.URLStateFailed)
			}

			sum.print(cmd.OutOrStdout())
			return nil
		},
	}
}

func (s ingestSummary) print(w io.Writer) {
	fmt.Fprintf(w, "events=%d messages=%d ignored=%d recorded=%d skipped=%d failed=%d\n",
		s.Events, s.Messages, s.Ignored, s.Recorded, s.Skipped, s.Failed)
}
