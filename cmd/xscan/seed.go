package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xscan/payments/internal/repository"
	"github.com/xscan/payments/internal/seed"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert synthetic transactions into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, calc, err := setup(cmd)
			if err != nil {
				return err
			}
			count, _ := cmd.Flags().GetInt("count")
			rngSeed, _ := cmd.Flags().GetInt64("rand-seed")
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}

			db, err := repository.InitDB(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("init db: %w", err)
			}
			defer db.Close()
			repo := repository.NewTransactionRepo(db, log)

			start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -14)
			recs, err := seed.Generate(rand.New(rand.NewSource(rngSeed)), calc, count, start)
			if err != nil {
				return err
			}
			inserted, err := repo.BulkInsert(cmd.Context(), recs)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s transactions into %s\n", humanize.Comma(int64(inserted)), cfg.Database.Path)
			return nil
		},
	}

	cmd.Flags().IntP("count", "n", 200, "Number of transactions to generate")
	cmd.Flags().Int64("rand-seed", 42, "Random seed")

	return cmd
}
