package cmd

import (
	"fmt"
	"os"

	"marketplace-booking/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "booking-engine",
	Short: "Booking lifecycle and payment reconciliation engine",
	// serve is the default action
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".env", "path to the env config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(hashKeyCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads and validates configuration and builds the logger.
func setup() (*utils.Config, *zap.Logger, error) {
	config, err := utils.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v. Using production defaults.\n", err)
		logger, _ = zap.NewProduction()
	}
	return config, logger, nil
}
