package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"collisio/internal/app"
	"collisio/internal/config"
	"collisio/internal/infrastructure"
)

// cli holds state shared by every subcommand
type cli struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "collisio",
		Short: "Build collision analysis reports from accident spreadsheets",
		Long: `collisio reads an accident spreadsheet (.xlsx, .csv or gsheet://id/range),
charts every column worth charting, asks a language model for a short
summary of each chart and writes the result as DOCX, HTML or PDF.

Examples:
  collisio generate accidents.xlsx
  collisio generate accidents.csv --formats docx,html --style enhanced
  collisio columns accidents.xlsx
  collisio template`,
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to a YAML config file (default: collisio.yaml if present)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newGenerateCmd(c),
		newColumnsCmd(c),
		newTemplateCmd(),
	)
	return root
}

// setup loads configuration and creates the stderr logger
func (c *cli) setup(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFrom(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	c.cfg = cfg
	c.logger = infrastructure.NewLogger(cmd.ErrOrStderr(), level)
	return nil
}
