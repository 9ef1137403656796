package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/xscan/payments/internal/config"
	"github.com/xscan/payments/internal/fees"
	"github.com/xscan/payments/internal/logger"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "xscan",
		Short:         "XScan payments core: fee pricing and transaction administration",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default $XSCAN_CONFIG or ./config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(feeCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration named by the --config flag and builds the
// logger and fee calculator every command shares.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, *fees.Calculator, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	log := logger.NewWithConfig(cfg.Log)

	schedule, err := fees.DefaultSchedule().Merge(cfg.FeeOverrides())
	if err != nil {
		return nil, log, nil, fmt.Errorf("fee overrides: %w", err)
	}
	return cfg, log, fees.NewCalculator(schedule), nil
}
