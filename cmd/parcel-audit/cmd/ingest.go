package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/parcel-audit/internal/das"
	"github.com/rezonia/parcel-audit/internal/ingestion"
	"github.com/rezonia/parcel-audit/internal/repository"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [feed.csv...]",
	Short: "Ingest DAS change feeds into the classification table",
	Long: `Ingest one or more normalized DAS change feeds. Each feed row is a
(change_kind, zip_or_range, effective_date) tuple; ranges like
"83400-83499" expand to their members. Malformed rows are reported and
skipped, never aborting the rest of the feed.

With --das-db the resulting table is persisted; re-ingesting the same
feed is idempotent.

Examples:
  parcel-audit ingest das_changes_2025.csv --das-db das.sqlite
  parcel-audit ingest q1.csv q2.csv --das-db das.sqlite`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	builder := das.NewBuilder()

	if dasDBPath != "" {
		db, err := repository.InitDB(dasDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		stored, err := repository.NewDASRepo(db).LoadEntries()
		if err != nil {
			return fmt.Errorf("load stored entries: %w", err)
		}
		if _, errs := builder.IngestEntries(stored); len(errs) > 0 {
			return fmt.Errorf("stored table has %d bad entries, first: %v", len(errs), errs[0])
		}
		printVerbose("Loaded %d stored entries\n", len(stored))
	}

	totalInserted := 0
	totalBad := 0
	for _, file := range args {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open %s: %w", file, err)
		}
		records, err := ingestion.ParseChangeFeed(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parse %s: %w", file, err)
		}

		inserted, errs := builder.IngestFeed(records)
		totalInserted += inserted
		totalBad += len(errs)
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", file, e)
		}
		printVerbose("%s: %d entries inserted, %d malformed\n", file, inserted, len(errs))
	}

	table := builder.Publish()
	for _, conflict := range builder.Conflicts() {
		fmt.Fprintf(os.Stderr, "Conflict: %v\n", conflict)
	}

	if dasDBPath != "" {
		db, err := repository.InitDB(dasDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := repository.NewDASRepo(db).UpsertEntries(table.Export())
		if err != nil {
			return fmt.Errorf("persist table: %w", err)
		}
		printVerbose("Persisted %d new entries to %s\n", n, dasDBPath)
	}

	fmt.Printf("Ingested %d entries (%d malformed) across %d ZIPs\n", totalInserted, totalBad, table.Len())
	return nil
}
