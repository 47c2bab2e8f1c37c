package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"lab-accession-backend/internal/accession"
)

func validateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a draft file without contacting the lab API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDraft(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := accession.Validate(d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Draft is valid: %d samples, %d slides\n", len(d.Samples), d.SlideCount())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Draft YAML file, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
