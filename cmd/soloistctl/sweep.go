package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"soloist/config"
	"soloist/database"
	"soloist/internal/infra/postgres"
	"soloist/internal/logger"
	"soloist/internal/service/payments"

	"github.com/spf13/cobra"
)

type sweeper interface {
	ExpireStalePending(ctx context.Context, olderThan time.Duration, dryRun bool) (payments.SweepResult, error)
}

func sweepCmd() *cobra.Command {
	var (
		olderThan time.Duration
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Fail pending payments that never completed",
		Long: `Mark pending payments older than --older-than as failed with reason "expired".

Examples:
  soloistctl sweep --dry-run
  soloistctl sweep --older-than 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("older-than") {
				olderThan = cfg.Payments.PendingTTL
			}
			log := logger.New(cfg.LogLevel)

			db, err := database.Open(cfg.Database, log)
			if err != nil {
				return err
			}
			// The sweep never talks to the processor.
			svc := payments.NewService(postgres.NewPaymentRepository(db), nil, log, payments.Options{})
			return runSweep(cmd.Context(), cmd.OutOrStdout(), svc, olderThan, dryRun)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 72*time.Hour, "age after which a pending payment is stale")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "count stale payments without changing them")
	return cmd
}

func runSweep(ctx context.Context, w io.Writer, s sweeper, olderThan time.Duration, dryRun bool) error {
	res, err := s.ExpireStalePending(ctx, olderThan, dryRun)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	cutoff := res.Cutoff.UTC().Format(time.RFC3339)
	if res.DryRun {
		fmt.Fprintf(w, "%d pending payment(s) created before %s would expire\n", res.Matched, cutoff)
		return nil
	}
	fmt.Fprintf(w, "expired %d of %d pending payment(s) created before %s\n", res.Expired, res.Matched, cutoff)
	return nil
}
