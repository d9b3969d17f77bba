package cmd

import (
	"encoding/json"
	"os"

	"marketplace-booking/internal/wire"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation pass over stale pending payments and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		app, err := wire.Bootstrap(cmd.Context(), config, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		resp, err := app.Service.Reconcile.ReconcileOnce(cmd.Context())
		if err != nil {
			logger.Error("Reconciliation failed", zap.Error(err))
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}
