package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"trolleymatch/adapters/excel"
	"trolleymatch/app"
	"trolleymatch/domain/run"
	"trolleymatch/internal"
	"trolleymatch/internal/config"
	"trolleymatch/internal/container"
	"trolleymatch/internal/errors"
	"trolleymatch/ports"

	"github.com/spf13/cobra"
)

// scraperFactory builds the product scraper once configuration is known
type scraperFactory func(cfg *config.Config, logger *internal.Logger) (ports.ProductScraper, error)

func newRootCmd(newScraper scraperFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trolleymatch-cli",
		Short:         "Look up a spreadsheet column of product names on Trolley",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newColumnsCmd(),
		newRunCmd(newScraper),
	)
	return rootCmd
}

func loadEnv() (*config.Config, *internal.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewLoggerTo(os.Stderr, internal.ParseLogLevel(cfg.Log.Level))
	return cfg, logger, nil
}

func newColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns [file]",
		Short: "List the columns of a spreadsheet with sample values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := loadEnv()
			if err != nil {
				return err
			}
			path := args[0]
			if !excel.AllowedExtension(path) {
				return errors.InvalidFileType(filepath.Base(path))
			}

			s, err := excel.NewReader(logger).Read(cmd.Context(), path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rows\n\n", filepath.Base(path), s.TotalRows())
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COLUMN\tSAMPLES")
			for _, preview := range s.Previews(3) {
				fmt.Fprintf(w, "%s\t%s\n", preview.Name, strings.Join(preview.Samples, " | "))
			}
			return w.Flush()
		},
	}
}

func newRunCmd(newScraper scraperFactory) *cobra.Command {
	var column string
	var limitArg string
	var outPath string

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Search every product name in a column and export the matches as CSV",
		Long: `Search every product name in a column and export the matches as CSV.

--limit takes a positive number or "all". At most 100 rows are processed.
Without --out the CSV is written to RESULTS_DIR.

Example: trolleymatch-cli run products.xlsx --column "Product Name" --limit all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv()
			if err != nil {
				return err
			}
			path := args[0]
			if !excel.AllowedExtension(path) {
				return errors.InvalidFileType(filepath.Base(path))
			}

			scraper, err := newScraper(cfg, logger)
			if err != nil {
				return err
			}
			deps, err := container.New(cfg, container.WithLogger(logger), container.WithScraper(scraper))
			if err != nil {
				return err
			}
			service := deps.MatchService

			s, err := deps.Reader.Read(cmd.Context(), path)
			if err != nil {
				return err
			}
			limit, err := run.ParseLimit(limitArg, limitArg, s.TotalRows(), cfg.Run.RowCap)
			if err != nil {
				return err
			}
			req := app.RunRequest{Sheet: s, Column: column, Limit: limit, Filename: filepath.Base(path)}

			var report *run.Report
			var written string
			if outPath == "" {
				report, err = service.Run(cmd.Context(), req)
				if err != nil {
					return err
				}
				written = filepath.Join(deps.Results.Dir(), report.CSVName)
			} else {
				report, err = service.Match(cmd.Context(), req)
				if err != nil {
					return err
				}
				if err := writeFile(outPath, func(w io.Writer) error { return service.Export(w, report.Results) }); err != nil {
					return err
				}
				written = outPath
			}

			printSummary(cmd.OutOrStdout(), report, written)
			return nil
		},
	}

	cmd.Flags().StringVar(&column, "column", "", "Column holding the product names")
	cmd.Flags().StringVar(&limitArg, "limit", run.DefaultMode, `Rows to process: a number or "all"`)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the CSV here instead of RESULTS_DIR")
	_ = cmd.MarkFlagRequired("column")

	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create output file")
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(out io.Writer, report *run.Report, written string) {
	fmt.Fprintf(out, "Processed %d rows from %q\n", report.Processed(), report.Column)
	for _, tc := range report.TierDistribution() {
		fmt.Fprintf(out, "  %-20s %d\n", tc.Tier, tc.Count)
	}
	if p := report.Prices; p.Count > 0 {
		fmt.Fprintf(out, "Prices: %d matched, min £%.2f, median £%.2f, mean £%.2f, max £%.2f\n",
			p.Count, p.Min, p.Median, p.Mean, p.Max)
	}
	fmt.Fprintf(out, "Results saved to %s\n", written)
}
