package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/parcel-audit/internal/repository"
)

var (
	classifyAsOf    string
	classifyHistory bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [zip...]",
	Short: "Classify destination ZIPs into DAS tiers",
	Long: `Look up the delivery-area-surcharge tier of one or more ZIP codes
against the ingested table, as of a given date (default: today).

Examples:
  parcel-audit classify 83716 --das-db das.sqlite
  parcel-audit classify 83716 65244 --as-of 2025-01-06 --das-db das.sqlite
  parcel-audit classify 83716 --history --das-db das.sqlite`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVar(&classifyAsOf, "as-of", "", "Classification date (YYYY-MM-DD, default today)")
	classifyCmd.Flags().BoolVar(&classifyHistory, "history", false, "Show full entry history instead of the effective tier")
}

func runClassify(cmd *cobra.Command, args []string) error {
	if dasDBPath == "" {
		return fmt.Errorf("--das-db is required (or set PARCEL_AUDIT_DAS_DB)")
	}

	asOf := time.Now()
	if classifyAsOf != "" {
		t, err := time.Parse("2006-01-02", classifyAsOf)
		if err != nil {
			return fmt.Errorf("as-of: %w", err)
		}
		asOf = t
	}

	db, err := repository.InitDB(dasDBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	table, err := repository.NewDASRepo(db).LoadTable()
	if err != nil {
		return fmt.Errorf("load DAS table: %w", err)
	}
	printVerbose("Table covers %d ZIPs\n", table.Len())

	for _, zip := range args {
		if classifyHistory {
			hist := table.History(zip)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(hist); err != nil {
				return err
			}
			continue
		}
		tier := table.Classify(zip, asOf)
		fmt.Printf("%s\t%s\n", zip, tier)
	}
	return nil
}
