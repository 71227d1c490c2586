package cli

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/trialscope/internal/adapters/csvsource"
	"github.com/emiliopalmerini/trialscope/internal/adapters/turso"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import CSV records into the database",
	Long: `Replace the records in the database with the contents of the CSV files.

Values are stored as written; they are validated when the records are loaded.

Examples:
  trialscope import                # From data.dir
  trialscope import --dir ./exports`,
	RunE: runImport,
}

var importDir string

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importDir, "dir", "d", "", "Directory with experiments.csv, trials.csv and runs.csv (default data.dir)")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dir := importDir
	if dir == "" {
		dir = cfg.Data.Dir
	}

	raw, err := csvsource.New(dir).Load(ctx)
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := turso.NewRecordRepository(db.DB, cfg.Database.Path)
	if err := repo.ReplaceAll(ctx, raw); err != nil {
		return err
	}
	if err := db.Sync(); err != nil {
		log.WithError(err).Warn("failed to sync import to remote")
	}

	experiments, trials, runs, err := repo.Counts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d experiments, %d trials, %d runs into %s\n",
		experiments, trials, runs, cfg.Database.Path)
	return nil
}
