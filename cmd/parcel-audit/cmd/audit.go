package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rezonia/parcel-audit/internal/model"
	"github.com/rezonia/parcel-audit/internal/money"
	"github.com/rezonia/parcel-audit/internal/repository"
	"github.com/rezonia/parcel-audit/pkg/auditlib"
)

var (
	auditOutputFile  string
	auditTimeout     time.Duration
	auditSampleLimit int
	addrInvalidRate  string
	resInvalidRate   string
)

var auditCmd = &cobra.Command{
	Use:   "audit [invoice.csv...]",
	Short: "Audit invoice CSV files for overcharges",
	Long: `Audit one or more invoice CSV files: reconstruct the expected charge
for every shipment, compare it against the billed charge and report
categorized findings with estimated recoverable amounts.

When --das-db points at an ingested DAS table, delivery-area surcharges
are checked against the classified tier of each destination ZIP.

Examples:
  parcel-audit audit invoice.csv
  parcel-audit audit jan.csv feb.csv -f table
  parcel-audit audit invoice.csv --das-db das.sqlite -o report.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVarP(&auditOutputFile, "output", "o", "", "Output file (default: stdout)")
	auditCmd.Flags().DurationVar(&auditTimeout, "timeout", 2*time.Minute, "Audit timeout per file")
	auditCmd.Flags().IntVar(&auditSampleLimit, "sample-limit", 5, "Affected tracking numbers kept per finding")
	auditCmd.Flags().StringVar(&addrInvalidRate, "addr-invalid-rate", "", "Estimated fraction of invalid address corrections (default 0.30)")
	auditCmd.Flags().StringVar(&resInvalidRate, "res-invalid-rate", "", "Estimated fraction of invalid residential surcharges (default 0.20)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	auditor, err := buildAuditor()
	if err != nil {
		return err
	}

	for _, file := range args {
		printVerbose("Auditing %s\n", file)

		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open %s: %w", file, err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), auditTimeout)
		report, rowErrs, err := auditor.AuditCSV(ctx, f)
		cancel()
		f.Close()
		if err != nil {
			return fmt.Errorf("audit %s: %w", file, err)
		}

		for _, rowErr := range rowErrs {
			fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", file, rowErr)
		}
		if err := writeReport(report); err != nil {
			return err
		}
	}
	return nil
}

func buildAuditor() (*auditlib.Auditor, error) {
	opts := auditlib.DefaultOptions()
	opts.Audit.SampleLimit = auditSampleLimit
	if addrInvalidRate != "" {
		rate, err := parseRate(addrInvalidRate)
		if err != nil {
			return nil, fmt.Errorf("addr-invalid-rate: %w", err)
		}
		opts.Audit.AddressCorrectionInvalidRate = rate
	}
	if resInvalidRate != "" {
		rate, err := parseRate(resInvalidRate)
		if err != nil {
			return nil, fmt.Errorf("res-invalid-rate: %w", err)
		}
		opts.Audit.ResidentialInvalidRate = rate
	}

	auditor := auditlib.NewAuditor(opts)

	if dasDBPath != "" {
		db, err := repository.InitDB(dasDBPath)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		entries, err := repository.NewDASRepo(db).LoadEntries()
		if err != nil {
			return nil, fmt.Errorf("load DAS table: %w", err)
		}
		for _, e := range entries {
			if _, err := auditor.IngestDAS(e.Tier, e.Zip, e.EffectiveDate); err != nil {
				return nil, fmt.Errorf("replay DAS entry %s: %w", e.Zip, err)
			}
		}
		auditor.PublishDAS()
		printVerbose("Loaded %d DAS entries from %s\n", len(entries), dasDBPath)
	}
	return auditor, nil
}

func writeReport(report *model.AuditReport) error {
	out := os.Stdout
	if auditOutputFile != "" {
		f, err := os.Create(auditOutputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if outputFormat == "table" {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "CATEGORY\tCOUNT\tPOTENTIAL SAVINGS\tSAMPLE\n")
		for _, f := range report.Findings {
			sample := ""
			if len(f.Sample) > 0 {
				sample = f.Sample[0]
				if len(f.Sample) > 1 {
					sample += fmt.Sprintf(" (+%d more)", len(f.Sample)-1)
				}
			}
			fmt.Fprintf(w, "%s\t%d\t$%s\t%s\n", f.Category, f.Count, f.PotentialSavings.StringFixed(2), sample)
		}
		fmt.Fprintf(w, "TOTAL\t\t$%s\t\n", report.TotalPotentialSavings.StringFixed(2))
		if len(report.DataQualityIssues) > 0 {
			fmt.Fprintf(w, "DATA QUALITY ISSUES\t%d\t\t\n", len(report.DataQualityIssues))
		}
		return w.Flush()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func parseRate(s string) (decimal.Decimal, error) {
	rate, err := money.FromString(s)
	if err != nil {
		return money.Zero, err
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return money.Zero, fmt.Errorf("fraction %s out of range [0,1]", s)
	}
	return rate, nil
}
