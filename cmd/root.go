package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terraclim/atlas-cli/internal/config"
	"github.com/terraclim/atlas-cli/internal/db"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "atlas-cli",
	Short: "Climate atlas query service",
	Long:  "Serves district-level climate time series from PostGIS: variable catalog, spatial-join queries, choropleth features, CSV/XLSX export.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openPool validates the config for a command mode and connects to the
// store.
func openPool(ctx context.Context, mode string) (*pgxpool.Pool, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return db.NewPool(ctx, cfg.Store.DatabaseURL, db.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
