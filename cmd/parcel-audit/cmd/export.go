package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/parcel-audit/internal/repository"
)

var exportOutputFile string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the DAS table for external persistence",
	Long: `Dump the ingested DAS table as (zip, tier, effective_date) rows,
grouped by tier then ZIP ascending, so exports of two publication
versions diff deterministically.

Examples:
  parcel-audit export --das-db das.sqlite
  parcel-audit export --das-db das.sqlite -f table -o das_dump.csv`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutputFile, "output", "o", "", "Output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	if dasDBPath == "" {
		return fmt.Errorf("--das-db is required (or set PARCEL_AUDIT_DAS_DB)")
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
	entries := table.Export()

	out := os.Stdout
	if exportOutputFile != "" {
		f, err := os.Create(exportOutputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"zip", "tier", "effective_date"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Zip, string(e.Tier), e.EffectiveDate.Format("2006-01-02")}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
