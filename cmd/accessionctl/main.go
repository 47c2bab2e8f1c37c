// Command accessionctl validates and submits accession drafts from YAML files
// against the lab API, without going through the dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"lab-accession-backend/internal/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "accessionctl",
		Short:         "Create lab accessions from draft files",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logrus.WarnLevel.String()
			if debug {
				level = logrus.DebugLevel.String()
			}
			if err := logger.Configure(level, "cli"); err != nil {
				return err
			}
			// stdout carries the outcome
			logrus.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(validateCmd())
	root.AddCommand(submitCmd())
	root.AddCommand(retryBatchCmd())
	return root
}
