package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"collisio/internal/app"
	"collisio/internal/document"
	"collisio/internal/narrative"
	"collisio/internal/records"
	"collisio/internal/report"
	"collisio/internal/services"
	"collisio/internal/validation"
)

type generateOptions struct {
	out          string
	formats      []string
	style        string
	pieMax       int
	noNarrative  bool
	worklist     string
	csv          bool
	title        string
	organization string
	quiet        bool
}

func newGenerateCmd(c *cli) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <input>",
		Short: "Generate a report from a spreadsheet",
		Long: `Generate reads the spreadsheet, builds one section per chartable column
or configured analysis and writes the requested documents plus a tables
workbook into <out>/<run id>/.

Input may be a .xlsx file, a .csv file or gsheet://<spreadsheet id>/<range>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "", "Output directory (default from config paths.output_dir)")
	f.StringSliceVarP(&opts.formats, "formats", "f", nil, "Document formats: docx, html, pdf")
	f.StringVar(&opts.style, "style", "", "Narrative style: basic, enhanced or advanced")
	f.IntVar(&opts.pieMax, "pie-max", 0, "Largest category count drawn as a pie chart")
	f.BoolVar(&opts.noNarrative, "no-narrative", false, "Skip language-model summaries")
	f.StringVar(&opts.worklist, "worklist", "", "YAML worklist replacing the built-in analyses")
	f.BoolVar(&opts.csv, "csv", false, "Also export every section table as CSV")
	f.StringVar(&opts.title, "title", "", "Report title")
	f.StringVar(&opts.organization, "organization", "", "Organization shown on the cover")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print progress")

	return cmd
}

func (c *cli) runGenerate(cmd *cobra.Command, input string, opts *generateOptions) error {
	ctx := cmd.Context()
	cfg := c.cfg

	req := services.Request{
		Source:       input,
		Title:        opts.title,
		Organization: opts.organization,
		PieMax:       opts.pieMax,
		ExportCSV:    opts.csv,
	}

	if len(opts.formats) > 0 {
		names := make([]string, 0, len(opts.formats))
		for _, name := range opts.formats {
			f, err := document.ParseFormat(name)
			if err != nil {
				return err
			}
			names = append(names, string(f))
		}
		// The writer only gets a PDF printer when configured formats include pdf.
		cfg.Report.Formats = names
	}
	if opts.style != "" {
		style := narrative.Style(strings.ToLower(opts.style))
		if !style.Valid() {
			return fmt.Errorf("unknown narrative style %q", opts.style)
		}
		req.Style = style
	}
	if opts.pieMax != 0 && opts.pieMax < 2 {
		return fmt.Errorf("--pie-max must be at least 2")
	}
	if opts.worklist != "" {
		w, err := report.LoadWorklist(opts.worklist)
		if err != nil {
			return err
		}
		req.Worklist = w
	}
	if opts.out != "" {
		cfg.Paths.OutputDir = opts.out
	}

	v := validation.NewFileValidator(c.logger)
	if !strings.HasPrefix(input, records.SheetsScheme) {
		if err := v.ValidateSpreadsheet(input); err != nil {
			return err
		}
	}
	if err := v.ValidateOutputDirectory(cfg.Paths.OutputDir); err != nil {
		return err
	}
	if opts.noNarrative {
		cfg.Narrative.Enabled = false
	}
	if !opts.quiet {
		req.Progress = progressPrinter(cmd.ErrOrStderr())
	}

	// Metrics have no scrape endpoint outside collisio-web.
	cfg.Telemetry.Metrics = false
	providers, metrics, err := app.NewTelemetry(cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	svc := app.NewReportService(ctx, cfg, metrics, c.logger)
	result, err := svc.Generate(ctx, req)
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), result)
	return nil
}

// progressPrinter writes one line per stage change to w
func progressPrinter(w io.Writer) report.Progress {
	return report.ProgressFunc(func(_ context.Context, u report.Update) {
		label := u.Section
		if label == "" {
			label = u.Message
		}
		fmt.Fprintf(w, "[%3d%%] %-9s %s\n", u.Percent, u.Stage, label)
	})
}

func printResult(w io.Writer, result *services.Result) {
	fmt.Fprintf(w, "Run %s: %d sections, %d skipped", result.RunID, result.Stats.Emitted, result.Stats.Skipped)
	if result.Stats.NarrativeFailures > 0 {
		fmt.Fprintf(w, ", %d without summary", result.Stats.NarrativeFailures)
	}
	fmt.Fprintf(w, " in %s\n\n", result.Duration.Round(time.Millisecond))

	formats := make([]string, 0, len(result.Files))
	for f := range result.Files {
		formats = append(formats, string(f))
	}
	sort.Strings(formats)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OUTPUT\tSIZE\tPATH")
	for _, f := range formats {
		path := result.Files[document.Format(f)]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f, sizeOf(path), path)
	}
	for _, path := range result.Tables {
		fmt.Fprintf(tw, "tables\t%s\t%s\n", sizeOf(path), path)
	}
	tw.Flush()

	if result.Report != nil && len(result.Report.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings:\n")
		for _, warning := range result.Report.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}
}

func sizeOf(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return humanize.Bytes(uint64(info.Size()))
}
