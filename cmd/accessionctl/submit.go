package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"lab-accession-backend/internal/accession"
	"lab-accession-backend/internal/config"
	"lab-accession-backend/internal/labapi"
	"lab-accession-backend/internal/retry"
)

func submitCmd() *cobra.Command {
	var (
		file  string
		token string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create the samples, slides and batch described by a draft file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDraft(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := accession.Validate(d); err != nil {
				return err
			}

			submitter, err := newSubmitter(cmd.ErrOrStderr(), token)
			if err != nil {
				return err
			}
			out, err := submitter.Submit(cmd.Context(), d)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Draft YAML file, - for stdin")
	cmd.Flags().StringVar(&token, "token", "", "Lab API bearer token (overrides LAB_API_TOKEN)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func retryBatchCmd() *cobra.Command {
	var (
		sampleIDs []string
		token     string
	)

	cmd := &cobra.Command{
		Use:   "retry-batch",
		Short: "Create the batch for samples that already exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			submitter, err := newSubmitter(cmd.ErrOrStderr(), token)
			if err != nil {
				return err
			}
			out, err := submitter.RetryBatch(cmd.Context(), sampleIDs)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringSliceVar(&sampleIDs, "sample-id", nil, "Created sample id (repeatable)")
	cmd.Flags().StringVar(&token, "token", "", "Lab API bearer token (overrides LAB_API_TOKEN)")
	_ = cmd.MarkFlagRequired("sample-id")
	return cmd
}

func newSubmitter(toasts io.Writer, token string) (*accession.Submitter, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if token == "" {
		token = cfg.LabAPIToken
	}

	api := labapi.NewClient(cfg.LabAPIBaseURL, token, cfg.LabAPITimeout,
		labapi.WithRateLimit(cfg.LabAPIRateLimit, cfg.LabAPIRateBurst))

	return accession.NewSubmitter(api, accession.Options{
		SamplePolicy: retry.Policy{
			MaxAttempts:  cfg.SampleMaxRetries,
			InitialDelay: cfg.RetryInitialDelay,
			Multiplier:   cfg.RetryBackoffMultiplier,
		},
		BatchPolicy: retry.Policy{
			MaxAttempts:  cfg.BatchMaxRetries,
			InitialDelay: cfg.RetryInitialDelay,
			Multiplier:   cfg.RetryBackoffMultiplier,
		},
		Notifier: toastPrinter(toasts),
		Listener: accession.ProgressListenerFunc(func(p accession.Progress, ids []string) {
			if p.IsIdle() {
				return
			}
			logrus.WithFields(logrus.Fields{
				"stage":   p.Stage,
				"current": p.Current,
				"total":   p.Total,
				"created": len(ids),
			}).Debug("Progress")
		}),
	}), nil
}

func toastPrinter(w io.Writer) accession.Notifier {
	return accession.NotifierFunc(func(n accession.Notification) {
		fmt.Fprintf(w, "[%s] %s\n", n.Severity, n.Message)
	})
}

// report prints the outcome and turns a failure into the command's error.
func report(w io.Writer, out accession.Outcome) error {
	if out.Succeeded() {
		fmt.Fprintf(w, "batch_id: %s\nslides: %d\n", out.Success.BatchID, out.Success.SlideCount)
		return nil
	}
	f := out.Failure
	if len(f.PartialSampleIDs) > 0 {
		fmt.Fprintf(w, "created_samples: %s\n", strings.Join(f.PartialSampleIDs, ","))
		if f.Recoverable {
			fmt.Fprintf(w, "retry with: accessionctl retry-batch --sample-id %s\n", strings.Join(f.PartialSampleIDs, ","))
		}
	}
	return fmt.Errorf("%s failed: %s", f.Kind, f.Message)
}
