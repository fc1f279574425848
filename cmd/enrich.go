package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/app"
	"github.com/hossagent/leadscout/internal/enrich"
)

// newEnrichCmd creates the 'enrich' subcommand: a single bounded batch
// pass over active lead events, then exit.
func newEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Run one enrichment batch pass and exit",
		RunE:  runEnrich,
	}
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer a.Close()

	stats, err := a.Orchestrator.RunBatch(ctx)
	if err != nil {
		return fmt.Errorf("enrichment batch: %w", err)
	}
	logger.Info("batch finished",
		zap.Int("processed", stats.Processed),
		zap.Int("dispatched", stats.Outcomes[enrich.PassDispatched]),
	)
	return nil
}
