package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mailparser/internal/app"
	"mailparser/internal/export"
	"mailparser/internal/sink"
)

func newExportCmd(load configLoader) *cobra.Command {
	var (
		format string
		out    string
		from   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export logged extraction records to CSV or XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			if from == "" {
				from = cfg.Sink.Kind
			}

			var lister export.Lister
			switch from {
			case app.SinkSQL:
				repo, closeFn, err := app.OpenRecords(cfg)
				if err != nil {
					return err
				}
				defer func() { _ = closeFn() }()
				lister = repo
			case app.SinkJSONL:
				lister = sink.NewJSONL(cfg.Sink.JSONLPath)
			default:
				return fmt.Errorf("cannot export from sink %q; use --from jsonl or --from sql", from)
			}

			records, err := export.Collect(cmd.Context(), lister)
			if err != nil {
				return err
			}

			if out == "" {
				out = export.BuildFilename("extractions", string(f))
			}
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			w := bufio.NewWriter(file)
			if err := f.Write(w, records); err != nil {
				_ = file.Close()
				return fmt.Errorf("writing %s: %w", out, err)
			}
			if err := w.Flush(); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d records to %s\n", len(records), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format: csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default extractions_<date>.<format>)")
	cmd.Flags().StringVar(&from, "from", "", "record store to read: jsonl or sql (default MAILPARSER_SINK_KIND)")
	return cmd
}
