// Package audit runs shipment batches through charge reconstruction,
// classifies billing discrepancies and aggregates recoverable amounts.
package audit

import (
	"context"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rezonia/parcel-audit/internal/model"
	"github.com/rezonia/parcel-audit/internal/money"
	"github.com/rezonia/parcel-audit/internal/rates"
	"github.com/rezonia/parcel-audit/internal/reconstruct"
)

// Config carries the policy knobs of the engine. The review fractions
// encode assumptions the caller may override, so they are configuration,
// never literals at the detection sites.
type Config struct {
	// AddressCorrectionInvalidRate estimates the fraction of billed
	// address-correction fees that would not survive review.
	AddressCorrectionInvalidRate decimal.Decimal
	// ResidentialInvalidRate estimates the fraction of residential
	// surcharges billed to what are actually commercial addresses.
	ResidentialInvalidRate decimal.Decimal
	// DimWeightMargin flags billed weight above dimensional weight times
	// this factor.
	DimWeightMargin decimal.Decimal
	// ExcessWeightRate converts excess billed pounds into a recoverable
	// dollar estimate.
	ExcessWeightRate decimal.Decimal
	// SampleLimit caps affected tracking numbers kept per finding.
	SampleLimit int
	// Workers bounds concurrent reconstruction; <= 0 means NumCPU.
	Workers int
}

// DefaultConfig returns the default audit policy.
func DefaultConfig() Config {
	return Config{
		AddressCorrectionInvalidRate: money.MustFromString("0.30"),
		ResidentialInvalidRate:       money.MustFromString("0.20"),
		DimWeightMargin:              money.MustFromString("1.5"),
		ExcessWeightRate:             money.MustFromString("2.50"),
		SampleLimit:                  5,
	}
}

// Engine audits shipment batches.
type Engine struct {
	recon *reconstruct.Reconstructor
	cfg   Config
}

// NewEngine creates an audit engine over a reconstructor.
func NewEngine(recon *reconstruct.Reconstructor, cfg Config) *Engine {
	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = 5
	}
	return &Engine{recon: recon, cfg: cfg}
}

// shipmentResult is the per-shipment outcome computed by a worker.
// Aggregation happens in a single pass afterwards, in batch order, so
// samples and totals are reproducible regardless of worker scheduling.
type shipmentResult struct {
	expected *model.ExpectedCharge
	err      error

	dimWeightExcess   decimal.Decimal
	lateRefund        decimal.Decimal
	addrCorrectionFee decimal.Decimal
	residentialFee    decimal.Decimal
	wrongSeasonPeak   decimal.Decimal
	dasDiff           decimal.Decimal
	dasFlagged        bool
}

// Run audits a batch. Reconstruction failures are isolated per shipment
// and reported as data quality issues; they never abort the batch.
func (e *Engine) Run(ctx context.Context, shipments []model.ShipmentRecord) (*model.AuditReport, error) {
	results := make([]shipmentResult, len(shipments))

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(shipments) && len(shipments) > 0 {
		workers = len(shipments)
	}

	// Shipments audit independently; only the index channel is shared.
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = e.auditOne(shipments[i])
			}
		}()
	}

feed:
	for i := range shipments {
		select {
		case <-ctx.Done():
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := e.aggregate(shipments, results)
	log.Printf("[audit] run %s: %d shipments, %d findings, %d data quality issues, potential savings %s",
		report.RunID, len(shipments), len(report.Findings), len(report.DataQualityIssues),
		report.TotalPotentialSavings.StringFixed(2))
	return report, nil
}

// auditOne runs every per-shipment detection rule. Rules are independent;
// a shipment may trigger several.
func (e *Engine) auditOne(s model.ShipmentRecord) shipmentResult {
	expected, err := e.recon.Reconstruct(s)
	if err != nil {
		return shipmentResult{err: err}
	}
	res := shipmentResult{expected: expected}

	// Billed weight inflated beyond a reasonable margin over the
	// reconstructed dimensional weight.
	if money.IsPositive(expected.DimensionalWeight) &&
		s.BilledWeight.GreaterThan(money.Mul(expected.DimensionalWeight, e.cfg.DimWeightMargin)) {
		res.dimWeightExcess = s.BilledWeight.Sub(expected.DimensionalWeight)
	}

	// Service guarantee: 100% refund on a missed commitment, but only on
	// money-back-guaranteed tiers.
	if !s.OnTimeDelivery && s.Service.Guaranteed() {
		res.lateRefund = s.NetCharge
	}

	// Review candidates: validity cannot be determined from shipment data
	// alone, so these only collect the billed fee for estimation.
	if money.IsPositive(s.Surcharges.AddressCorrection) {
		res.addrCorrectionFee = s.Surcharges.AddressCorrection
	}
	if money.IsPositive(s.Surcharges.Residential) {
		res.residentialFee = s.Surcharges.Residential
	}

	// A peak line billed outside the declared window is deterministic:
	// the whole line is an overcharge.
	if money.IsPositive(s.Surcharges.PeakSeason) && !e.recon.InPeakWindow(s.InvoiceDate) {
		res.wrongSeasonPeak = s.Surcharges.PeakSeason
	}

	// DAS billed at a different tier than the classifier assigns. The
	// difference can be negative (undercharge); it is reported either way
	// because it affects net reconciliation.
	_, expectedFee := e.recon.ExpectedDASFee(s.DestZip, s.InvoiceDate)
	diff := money.Cents(s.Surcharges.DeliveryArea.Sub(expectedFee))
	if diff.Abs().GreaterThan(e.recon.Tolerance(1)) {
		res.dasDiff = diff
		res.dasFlagged = true
	}

	return res
}

// findingAccumulator collects one category across the batch.
type findingAccumulator struct {
	count   int
	savings decimal.Decimal
	net     decimal.Decimal
	sample  []string
	review  bool
}

func (a *findingAccumulator) hit(tracking string, limit int) {
	a.count++
	if len(a.sample) < limit {
		a.sample = append(a.sample, tracking)
	}
}

// aggregate merges per-shipment results into the final report in batch
// order. This is the single synchronized step after the parallel phase.
func (e *Engine) aggregate(shipments []model.ShipmentRecord, results []shipmentResult) *model.AuditReport {
	accs := make(map[model.FindingCategory]*findingAccumulator, len(model.CategoryOrder))
	for _, cat := range model.CategoryOrder {
		accs[cat] = &findingAccumulator{savings: money.Zero, net: money.Zero}
	}

	summary := model.Summary{
		TotalShipments:   len(shipments),
		TotalBilled:      money.Zero,
		TotalExpected:    money.Zero,
		AverageCharge:    money.Zero,
		ServiceBreakdown: make(map[rates.ServiceType]int),
		DASUndercharge:   money.Zero,
	}
	var issues []model.DataQualityIssue
	addrFees := money.Zero
	resFees := money.Zero

	for i, s := range shipments {
		summary.TotalBilled = summary.TotalBilled.Add(s.NetCharge)
		summary.ServiceBreakdown[s.Service]++

		r := results[i]
		if r.err != nil {
			issues = append(issues, model.DataQualityIssue{
				TrackingNumber: s.TrackingNumber,
				Reason:         r.err.Error(),
			})
			continue
		}
		summary.AuditedShipments++
		summary.TotalExpected = summary.TotalExpected.Add(r.expected.TotalExpected)

		if money.IsPositive(r.dimWeightExcess) {
			a := accs[model.CategoryDimensionalWeight]
			a.hit(s.TrackingNumber, e.cfg.SampleLimit)
			gain := money.Mul(r.dimWeightExcess, e.cfg.ExcessWeightRate)
			a.savings = a.savings.Add(gain)
			a.net = a.net.Add(gain)
		}
		if money.IsPositive(r.lateRefund) {
			a := accs[model.CategoryLateDelivery]
			a.hit(s.TrackingNumber, e.cfg.SampleLimit)
			a.savings = a.savings.Add(r.lateRefund)
			a.net = a.net.Add(r.lateRefund)
		}
		if money.IsPositive(r.addrCorrectionFee) {
			a := accs[model.CategoryAddressCorrection]
			a.hit(s.TrackingNumber, e.cfg.SampleLimit)
			addrFees = addrFees.Add(r.addrCorrectionFee)
		}
		if money.IsPositive(r.residentialFee) {
			a := accs[model.CategoryResidentialSurcharge]
			a.hit(s.TrackingNumber, e.cfg.SampleLimit)
			resFees = resFees.Add(r.residentialFee)
		}
		if money.IsPositive(r.wrongSeasonPeak) {
			a := accs[model.CategoryWrongSeasonPeak]
			a.hit(s.TrackingNumber, e.cfg.SampleLimit)
			a.savings = a.savings.Add(r.wrongSeasonPeak)
			a.net = a.net.Add(r.wrongSeasonPeak)
		}
		if r.dasFlagged {
			a := accs[model.CategoryDASMisclassification]
			a.hit(s.TrackingNumber, e.cfg.SampleLimit)
			a.net = a.net.Add(r.dasDiff)
			if money.IsPositive(r.dasDiff) {
				a.savings = a.savings.Add(r.dasDiff)
			} else {
				summary.DASUndercharge = summary.DASUndercharge.Add(r.dasDiff)
			}
		}
	}

	e.scaleReviewFinding(accs[model.CategoryAddressCorrection], addrFees, e.cfg.AddressCorrectionInvalidRate)
	e.scaleReviewFinding(accs[model.CategoryResidentialSurcharge], resFees, e.cfg.ResidentialInvalidRate)
	e.detectDuplicates(shipments, accs[model.CategoryDuplicateBilling])

	if summary.AuditedShipments > 0 {
		summary.AverageCharge = money.Div(summary.TotalBilled, decimal.NewFromInt(int64(summary.TotalShipments)))
	}
	summary.TotalBilled = money.Cents(summary.TotalBilled)
	summary.TotalExpected = money.Cents(summary.TotalExpected)

	report := &model.AuditReport{
		RunID:                 uuid.NewString(),
		GeneratedAt:           time.Now().UTC(),
		TotalPotentialSavings: money.Zero,
		Summary:               summary,
		DataQualityIssues:     issues,
	}
	for _, cat := range model.CategoryOrder {
		a := accs[cat]
		if a.count == 0 {
			continue
		}
		f := model.OverchargeFinding{
			Category:         cat,
			Count:            a.count,
			PotentialSavings: money.Cents(a.savings),
			NetAdjustment:    money.Cents(a.net),
			Review:           a.review,
			Sample:           a.sample,
		}
		report.Findings = append(report.Findings, f)
		// No cross-category dedup: a shipment flagged under several
		// categories contributes to each, since the categories are
		// independent claim types filed separately.
		report.TotalPotentialSavings = report.TotalPotentialSavings.Add(f.PotentialSavings)
	}
	report.TotalPotentialSavings = money.Cents(report.TotalPotentialSavings)
	return report
}

// scaleReviewFinding converts a collected fee total into an estimated
// recoverable amount for a review-candidate category. The count becomes
// the estimated invalid count; the original flagged count is preserved in
// sampling only.
func (e *Engine) scaleReviewFinding(a *findingAccumulator, feeTotal, fraction decimal.Decimal) {
	if a.count == 0 {
		return
	}
	a.review = true
	estimated := decimal.NewFromInt(int64(a.count)).Mul(fraction).IntPart()
	a.count = int(estimated)
	a.savings = money.Mul(feeTotal, fraction)
	a.net = a.savings
	if a.count == 0 && money.IsPositive(a.savings) {
		a.count = 1
	}
	// The sample must never outnumber the estimated count it illustrates.
	if len(a.sample) > a.count {
		a.sample = a.sample[:a.count]
	}
}

// detectDuplicates is a sequential cross-record pass: records sharing a
// tracking number beyond the first are the extra billed instances.
func (e *Engine) detectDuplicates(shipments []model.ShipmentRecord, a *findingAccumulator) {
	firstSeen := make(map[string]struct{}, len(shipments))
	for _, s := range shipments {
		if s.TrackingNumber == "" {
			continue
		}
		if _, seen := firstSeen[s.TrackingNumber]; !seen {
			firstSeen[s.TrackingNumber] = struct{}{}
			continue
		}
		a.hit(s.TrackingNumber, e.cfg.SampleLimit)
		a.savings = a.savings.Add(s.NetCharge)
		a.net = a.net.Add(s.NetCharge)
	}
}
