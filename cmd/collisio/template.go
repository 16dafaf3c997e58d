package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"collisio/internal/records"
)

func newTemplateCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "template [path]",
		Short: "Write a blank input workbook with the expected headers",
		Args:  cobra.MaximumNArgs(1),
		// The template needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := records.TemplateFilename
			if len(args) == 1 {
				path = args[0]
			}

			flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			f, err := os.OpenFile(path, flags, 0644)
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err != nil {
				return err
			}
			if err := records.WriteTemplate(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
