package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/orders/internal/config"
	"github.com/ehr/orders/internal/platform/db"
	"github.com/ehr/orders/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orders-server",
		Short: "Prescription group and dispense API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// openMigrator connects to Postgres and resolves the tenant schema the
// migrate sub-commands work on.
func openMigrator(ctx context.Context, tenant string) (*pgxpool.Pool, *db.Migrator, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, "", err
	}
	if cfg.StoreBackend != config.BackendPostgres {
		return nil, nil, "", fmt.Errorf("migrations need STORE_BACKEND=%s, got %s", config.BackendPostgres, cfg.StoreBackend)
	}
	if tenant == "" {
		tenant = cfg.DefaultTenant
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: 2, MinConns: 1}, zerolog.Nop())
	if err != nil {
		return nil, nil, "", err
	}
	schema, err := db.EnsureTenantSchema(ctx, pool, tenant)
	if err != nil {
		pool.Close()
		return nil, nil, "", err
	}
	return pool, db.NewMigrator(pool, migrations.FS), schema, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			ctx := cmd.Context()
			pool, migrator, schema, err := openMigrator(ctx, tenant)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) to %s.\n", count, schema)
			return nil
		},
	}
	upCmd.Flags().String("tenant", "", "Tenant whose schema is migrated (defaults to DEFAULT_TENANT)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			ctx := cmd.Context()
			pool, migrator, schema, err := openMigrator(ctx, tenant)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd, schema, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("tenant", "", "Tenant whose schema is inspected (defaults to DEFAULT_TENANT)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatus(cmd *cobra.Command, schema string, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}
