package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xscan/payments/internal/api"
	"github.com/xscan/payments/internal/repository"
	"github.com/xscan/payments/internal/seed"
	"github.com/xscan/payments/internal/transactions"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, calc, err := setup(cmd)
			if err != nil {
				return err
			}

			log.Info().Str("path", cfg.Database.Path).Msg("initializing database")
			db, err := repository.InitDB(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("init db: %w", err)
			}
			defer db.Close()

			repo := repository.NewTransactionRepo(db, log)
			svc := transactions.NewService(repo, calc, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Seed an empty database when asked to.
			if n, _ := cmd.Flags().GetInt("seed"); n > 0 {
				count, err := repo.Count(ctx)
				if err != nil {
					return fmt.Errorf("count transactions: %w", err)
				}
				if count == 0 {
					recs, err := seed.Generate(rand.New(rand.NewSource(42)), calc, n, time.Now().UTC().AddDate(0, 0, -14))
					if err != nil {
						return err
					}
					inserted, err := repo.BulkInsert(ctx, recs)
					if err != nil {
						return fmt.Errorf("seed: %w", err)
					}
					log.Info().Int("inserted", inserted).Msg("seeded transactions")
				} else {
					log.Info().Int("count", count).Msg("database already has transactions, skipping seed")
				}
			}

			srv := &http.Server{
				Addr:         cfg.Server.Addr(),
				Handler:      api.NewRouter(svc, calc, log),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Str("version", Version).Msg("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().Int("seed", 0, "Seed this many synthetic transactions when the database is empty")

	return cmd
}
