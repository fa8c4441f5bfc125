package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FranksOps/sovgauge/internal/report"
)

func newAnalyzeCmd(st *state) *cobra.Command {
	var (
		format  string
		outPath string
		csvPath string
	)

	cmd := &cobra.Command{
		Use:   "analyze [query]",
		Short: "Run one analysis and print the report",
		Long: `Run the retrieval, enrichment, aggregation and insight stages once for
a query. Without arguments the configured default query is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				query = st.cfg.Server.DefaultQuery
			}

			write, err := reportWriter(format)
			if err != nil {
				return err
			}

			app, err := st.build()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := app.Pipeline.Run(ctx, query)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if csvPath != "" {
				if err := writeFile(csvPath, func(w io.Writer) error { return report.WriteCSV(w, s.Enriched) }); err != nil {
					return err
				}
			}

			r := s.Report()
			if outPath == "" {
				return write(cmd.OutOrStdout(), r)
			}
			return writeFile(outPath, func(w io.Writer) error { return write(w, r) })
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: json, text or html")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&csvPath, "documents-csv", "", "also write per-document analysis as CSV")
	return cmd
}

func reportWriter(format string) (func(io.Writer, report.Report) error, error) {
	switch strings.ToLower(format) {
	case "json":
		return report.WriteJSON, nil
	case "text", "":
		return report.WriteText, nil
	case "html":
		return report.WriteHTML, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return fn(f)
}
