package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	dasDBPath    string
)

var rootCmd = &cobra.Command{
	Use:   "parcel-audit",
	Short: "Audit parcel-carrier shipping invoices for overcharges",
	Long: `Parcel Audit recomputes what each shipment should have cost under
published rate and surcharge rules, compares that to what was billed, and
reports categorized discrepancies with estimated recoverable amounts.

It also maintains the delivery-area-surcharge (DAS) ZIP classification
table built from carrier-published, effective-dated ZIP lists.

Examples:
  # Audit an invoice CSV
  parcel-audit audit invoice.csv

  # Ingest a DAS change feed and persist it
  parcel-audit ingest das_changes.csv --das-db das.sqlite

  # Classify a ZIP as of a date
  parcel-audit classify 83716 --as-of 2025-03-01 --das-db das.sqlite

  # Run the HTTP API
  parcel-audit serve --address :8080`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().StringVar(&dasDBPath, "das-db", "", "SQLite DAS table path (env: PARCEL_AUDIT_DAS_DB)")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// A .env file is optional; flags and the environment win.
	_ = godotenv.Load()

	if dasDBPath == "" {
		dasDBPath = os.Getenv("PARCEL_AUDIT_DAS_DB")
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
