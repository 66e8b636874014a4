package auditlib

import (
	"context"
	"io"
	"time"

	"github.com/rezonia/parcel-audit/internal/audit"
	"github.com/rezonia/parcel-audit/internal/das"
	"github.com/rezonia/parcel-audit/internal/ingestion"
	"github.com/rezonia/parcel-audit/internal/rates"
	"github.com/rezonia/parcel-audit/internal/reconstruct"
)

// Options configures an Auditor.
type Options struct {
	// Rates overrides the published-rate defaults.
	Rates *RateModel
	// Audit overrides the default detection policy (review fractions,
	// sample limit, worker count).
	Audit audit.Config
	// Tolerance overrides the default discrepancy tolerance.
	Tolerance reconstruct.Options
}

// DefaultOptions returns default rates, policy and tolerance.
func DefaultOptions() Options {
	return Options{
		Rates:     rates.Default(),
		Audit:     audit.DefaultConfig(),
		Tolerance: reconstruct.DefaultOptions(),
	}
}

// Auditor is the one-stop entry point: it owns a DAS table under
// construction and audits shipment batches against the published one.
type Auditor struct {
	opts    Options
	builder *das.Builder
	table   *das.Table
}

// NewAuditor creates an auditor with the given options.
func NewAuditor(opts Options) *Auditor {
	if opts.Rates == nil {
		opts.Rates = rates.Default()
	}
	if opts.Audit.SampleLimit == 0 {
		opts.Audit = audit.DefaultConfig()
	}
	if opts.Tolerance == (reconstruct.Options{}) {
		opts.Tolerance = reconstruct.DefaultOptions()
	}
	b := das.NewBuilder()
	return &Auditor{opts: opts, builder: b, table: b.Publish()}
}

// IngestDAS records a tier assignment for a ZIP or inclusive range.
// Call PublishDAS before auditing to make the ingests visible.
func (a *Auditor) IngestDAS(tier Tier, zipOrRange string, effective time.Time) (int, error) {
	return a.builder.Ingest(tier, zipOrRange, effective)
}

// IngestDASFeed ingests a whole change feed, collecting per-entry errors.
func (a *Auditor) IngestDASFeed(records []das.ChangeRecord) (int, []error) {
	return a.builder.IngestFeed(records)
}

// IngestDASFeedCSV parses and ingests a normalized change feed CSV.
func (a *Auditor) IngestDASFeedCSV(r io.Reader) (int, []error, error) {
	records, err := ingestion.ParseChangeFeed(r)
	if err != nil {
		return 0, nil, err
	}
	inserted, errs := a.builder.IngestFeed(records)
	return inserted, errs, nil
}

// PublishDAS freezes the ingested entries into the table used by
// Classify and Audit.
func (a *Auditor) PublishDAS() {
	a.table = a.builder.Publish()
}

// Classify returns the DAS tier of a ZIP at a point in time.
func (a *Auditor) Classify(zip string, asOf time.Time) Tier {
	return a.table.Classify(zip, asOf)
}

// DASHistory exposes the full entry history for a ZIP.
func (a *Auditor) DASHistory(zip string) []das.Entry {
	return a.table.History(zip)
}

// ExportDAS dumps the table grouped by tier, then ZIP ascending.
func (a *Auditor) ExportDAS() []das.Entry {
	return a.table.Export()
}

// Audit runs a shipment batch and returns the findings report.
func (a *Auditor) Audit(ctx context.Context, shipments []ShipmentRecord) (*AuditReport, error) {
	recon := reconstruct.New(a.opts.Rates, a.table, a.opts.Tolerance)
	engine := audit.NewEngine(recon, a.opts.Audit)
	return engine.Run(ctx, shipments)
}

// AuditCSV parses an invoice CSV and audits the parseable rows. Row
// parse errors are returned alongside the report; they never abort the
// audit.
func (a *Auditor) AuditCSV(ctx context.Context, r io.Reader) (*AuditReport, []error, error) {
	shipments, rowErrs, err := ingestion.ParseInvoiceCSV(r)
	if err != nil {
		return nil, nil, err
	}
	report, err := a.Audit(ctx, shipments)
	if err != nil {
		return nil, rowErrs, err
	}
	return report, rowErrs, nil
}

// Reconstruct computes the expected charge for a single shipment using
// the published DAS table.
func (a *Auditor) Reconstruct(s ShipmentRecord) (*ExpectedCharge, error) {
	recon := reconstruct.New(a.opts.Rates, a.table, a.opts.Tolerance)
	return recon.Reconstruct(s)
}
