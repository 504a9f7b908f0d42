package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brandscan/brandscan/internal/app"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single reconciliation pass and exit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}
			defer a.Close()

			stats := a.Sweeper.RunOnce(cmd.Context())
			logger.Info("sweep finished",
				zap.Int("extracts_checked", stats.ExtractsChecked),
				zap.Int("extracts_completed", stats.ExtractsCompleted),
				zap.Int("extracts_failed", stats.ExtractsFailed),
				zap.Int("finalized", stats.Finalized),
				zap.Int("errors", stats.Errors),
			)
			if stats.Errors > 0 {
				return fmt.Errorf("sweep finished with %d errors", stats.Errors)
			}
			return nil
		},
	}
}
