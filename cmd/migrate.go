package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vtable/vtable/internal/lock"
)

var migrateLockPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the store tables",
	Long: `Apply the PostgreSQL DDL for the schema, field, entity and value tables.
Migrations are idempotent. A lock file keeps two migrations from running at once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := lock.Acquire(migrateLockPath); err != nil {
			return err
		}
		defer lock.Release(migrateLockPath)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		sess, err := openSessionWith(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer sess.close()

		if err := sess.pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating store: %w", err)
		}
		success(cmd.OutOrStdout(), "Store is up to date.")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateLockPath, "lock-file", lock.DefaultPath, "path of the migration lock file")
	rootCmd.AddCommand(migrateCmd)
}
