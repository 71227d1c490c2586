package cli

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/trialscope/internal/adapters/turso"
	"github.com/emiliopalmerini/trialscope/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run database migrations",
	Long: `Run database migrations.

Without arguments, runs all pending migrations (up).
With a version number, migrates to that specific version (up or down as needed).

Examples:
  trialscope migrate          # Run all pending migrations
  trialscope migrate 1        # Migrate to version 1
  trialscope migrate 0        # Rollback all migrations
  trialscope migrate status   # Show the applied version`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied migration version",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := turso.NewDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	m := migrate.New(db.DB)
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if status.Dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", status.Version)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Current version: %d\n", status.Version)

	var (
		applied    int
		migrateErr error
	)
	if len(args) == 0 {
		applied, migrateErr = m.Up(ctx)
	} else {
		target, err := strconv.Atoi(args[0])
		if err != nil || target < 0 {
			return fmt.Errorf("invalid version number: %s", args[0])
		}
		switch {
		case target > status.Version:
			applied, migrateErr = m.UpTo(ctx, target)
		case target < status.Version:
			applied, migrateErr = m.DownTo(ctx, target)
		default:
			fmt.Fprintln(out, "Already at target version")
			return nil
		}
	}

	// Sync schema changes to remote
	if err := db.Sync(); err != nil {
		log.WithError(err).Warn("failed to sync migrations to remote")
	}
	if migrateErr != nil {
		return migrateErr
	}

	if applied == 0 && len(args) == 0 {
		fmt.Fprintln(out, "No pending migrations")
		return nil
	}
	status, err = m.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Applied %d migration(s), now at version %d\n", applied, status.Version)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := turso.NewDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	status, err := migrate.New(db.DB).Status(ctx)
	if err != nil {
		return err
	}
	state := "clean"
	if status.Dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Version %d of %d (%s)\n", status.Version, status.Latest, state)
	return nil
}
