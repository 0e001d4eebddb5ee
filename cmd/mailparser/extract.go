package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"mailparser/internal/app"
	"mailparser/internal/document"
	"mailparser/internal/domain"
	"mailparser/internal/port"
	"mailparser/internal/service"
)

// extractOutput is one line of extract's stdout.
type extractOutput struct {
	File   string                   `json:"file"`
	Record *domain.ExtractionRecord `json:"record,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

func newExtractCmd(load configLoader) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "extract FILE...",
		Short: "Extract structured data from PDF, .txt or .eml files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Batch.Concurrency = concurrency
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := app.New(ctx, cfg, stderrLogger(cfg))
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			outcomes := extractFiles(ctx, a.BatchRunner(), a.Text, args)
			return writeOutcomes(cmd.OutOrStdout(), outcomes)
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "documents processed in parallel (default MAILPARSER_BATCH_CONCURRENCY)")
	return cmd
}

// extractFiles loads every path and runs the loadable ones through runner.
// Outcomes are returned in argument order.
func extractFiles(ctx context.Context, runner *service.BatchRunner, tp port.TextProvider, paths []string) []service.BatchOutcome {
	outcomes := make([]service.BatchOutcome, len(paths))
	items := make([]service.BatchItem, 0, len(paths))
	index := make([]int, 0, len(paths))

	for i, p := range paths {
		doc, err := document.LoadFile(ctx, tp, p)
		if err != nil {
			outcomes[i] = service.BatchOutcome{Name: p, Err: err}
			continue
		}
		items = append(items, service.BatchItem{
			Name: p,
			Input: service.IntakeInput{
				Source:   "cli",
				Filename: filepath.Base(p),
				Document: doc,
			},
		})
		index = append(index, i)
	}

	for j, o := range runner.Run(ctx, items) {
		outcomes[index[j]] = o
	}
	return outcomes
}

func writeOutcomes(w io.Writer, outcomes []service.BatchOutcome) error {
	enc := json.NewEncoder(w)
	failed := 0
	for _, o := range outcomes {
		out := extractOutput{File: o.Name, Record: o.Record}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		if o.Err != nil || (o.Record != nil && o.Record.Status == domain.RecordStatusFailed) {
			failed++
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(outcomes))
	}
	return nil
}
