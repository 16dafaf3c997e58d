package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"collisio/internal/app"
	"collisio/internal/infrastructure"
	"collisio/internal/services"
)

func newColumnsCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "columns <input>",
		Short: "List the columns of a spreadsheet and which ones would be charted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			cfg.Narrative.Enabled = false
			cfg.Report.Map = false

			svc := app.NewReportService(cmd.Context(), cfg, infrastructure.NoopMetrics(), c.logger)
			cr, err := svc.Columns(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cr)
			}
			printColumns(cmd, cr)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printColumns(cmd *cobra.Command, cr *services.ColumnReport) {
	w := cmd.OutOrStdout()

	charted := make(map[string]bool, len(cr.Categorical))
	for _, name := range cr.Categorical {
		charted[name] = true
	}

	fmt.Fprintf(w, "%s rows, %d columns\n\n", humanize.Comma(int64(cr.Rows)), len(cr.Profiles))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tKIND\tDISTINCT\tMISSING\tCHARTED")
	for _, p := range cr.Profiles {
		mark := ""
		if charted[p.Name] {
			mark = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Kind,
			humanize.Comma(int64(p.Distinct)), humanize.Comma(int64(p.Missing)), mark)
	}
	tw.Flush()

	if cr.Latitude != "" {
		fmt.Fprintf(w, "\nCoordinates: %s, %s\n", cr.Latitude, cr.Longitude)
	}
}
