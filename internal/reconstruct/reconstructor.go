// Package reconstruct recomputes what a shipment should have cost under
// the published rate and surcharge rules, independent of what was billed.
package reconstruct

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/parcel-audit/internal/model"
	"github.com/rezonia/parcel-audit/internal/money"
	"github.com/rezonia/parcel-audit/internal/rates"
)

// Surcharge breakdown keys.
const (
	SurchargeResidential        = "residential"
	SurchargeAddressCorrection  = "address_correction"
	SurchargeFuel               = "fuel"
	SurchargePeakSeason         = "peak_season"
	SurchargeLargePackage       = "large_package"
	SurchargeAdditionalHandling = "additional_handling"
	SurchargeSaturdayDelivery   = "saturday_delivery"
	SurchargeDeliveryArea       = "delivery_area"
)

// Classifier resolves a destination ZIP to its DAS tier at a point in time.
type Classifier interface {
	Classify(zip string, asOf time.Time) rates.Tier
}

// Options tune discrepancy tolerance. The tolerance absorbs rounding
// noise between this reconstruction and the carrier's billing system.
type Options struct {
	// FlatTolerance is the minimum difference treated as a discrepancy.
	FlatTolerance decimal.Decimal
	// PerComponentTolerance scales with the number of summed components.
	PerComponentTolerance decimal.Decimal
}

// DefaultOptions returns the default tolerances: a flat $0.05, or $0.01
// per summed component, whichever is larger.
func DefaultOptions() Options {
	return Options{
		FlatTolerance:         money.MustFromString("0.05"),
		PerComponentTolerance: money.MustFromString("0.01"),
	}
}

// Reconstructor computes expected charges for shipments.
type Reconstructor struct {
	rates *rates.Model
	das   Classifier
	opts  Options
}

// New creates a reconstructor over a rate model and a DAS classifier.
func New(m *rates.Model, classifier Classifier, opts Options) *Reconstructor {
	return &Reconstructor{rates: m, das: classifier, opts: opts}
}

// Reconstruct computes the expected charge for one shipment. All currency
// amounts are rounded to cents at the point of computation, matching how
// the billing systems round, so comparisons do not chase float noise.
func (r *Reconstructor) Reconstruct(s model.ShipmentRecord) (*model.ExpectedCharge, error) {
	if err := validateDimensions(s); err != nil {
		return nil, err
	}

	baseRate, ok := r.rates.BaseRate(s.Service)
	if !ok {
		return nil, model.NewReconstructionError(model.ReconstructionUnknownService,
			s.TrackingNumber, "service", "service type not in rate model: "+string(s.Service))
	}
	perPound, _ := r.rates.PerPoundRate(s.Service, s.Zone)

	divisor := r.rates.Divisor(s.OriginCountry, s.DestCountry)
	dimWeight := money.Weight(s.Length.Mul(s.Width).Mul(s.Height).Div(divisor))
	chargeable := money.Weight(money.Max(s.ActualWeight, dimWeight))

	base := money.Cents(baseRate.Add(money.Mul(chargeable, perPound)))

	surcharges := make(map[string]decimal.Decimal)
	add := func(name string, amount decimal.Decimal) {
		if money.IsPositive(amount) {
			surcharges[name] = money.Cents(amount)
		}
	}

	if s.ResidentialDelivery {
		add(SurchargeResidential, r.rates.ResidentialFee)
	}
	if s.AddressCorrected {
		// Only the fee amount is reconstructable here; whether the
		// correction itself was valid is an audit-engine question.
		add(SurchargeAddressCorrection, r.rates.AddressCorrectionFee)
	}
	add(SurchargeFuel, money.Mul(base, r.rates.FuelRate))
	if r.rates.InPeakWindow(s.InvoiceDate) {
		add(SurchargePeakSeason, r.rates.PeakSeasonFee)
	}
	girth := s.Length.Add(decimal.NewFromInt(2).Mul(s.Width.Add(s.Height)))
	if girth.GreaterThan(r.rates.LargePackageGirthLimit) {
		add(SurchargeLargePackage, r.rates.LargePackageFee)
	}
	if s.ActualWeight.GreaterThan(r.rates.AdditionalHandlingWeight) {
		add(SurchargeAdditionalHandling, r.rates.AdditionalHandlingFee)
	}
	if s.SaturdayDelivery {
		add(SurchargeSaturdayDelivery, r.rates.SaturdayDeliveryFee)
	}

	tier := rates.TierNone
	if r.das != nil {
		tier = r.das.Classify(s.DestZip, s.InvoiceDate)
	}
	add(SurchargeDeliveryArea, r.rates.DASFee(tier))

	expected := &model.ExpectedCharge{
		DimensionalWeight:    dimWeight,
		BilledWeightExpected: chargeable,
		BaseCharge:           base,
		DASTier:              tier,
		Surcharges:           surcharges,
	}
	expected.TotalExpected = money.Cents(base.Add(expected.SurchargeTotal()))
	return expected, nil
}

// Tolerance returns the allowed difference from the billed charge before
// it counts as a discrepancy, given the number of summed components.
func (r *Reconstructor) Tolerance(components int) decimal.Decimal {
	if components < 1 {
		components = 1
	}
	scaled := money.Mul(r.opts.PerComponentTolerance, decimal.NewFromInt(int64(components)))
	return money.Max(r.opts.FlatTolerance, scaled)
}

// InPeakWindow reports whether a date falls inside the rate model's
// declared peak season.
func (r *Reconstructor) InPeakWindow(t time.Time) bool {
	return r.rates.InPeakWindow(t)
}

// ExpectedDASFee returns the fee for the tier the classifier assigns a
// destination at a point in time.
func (r *Reconstructor) ExpectedDASFee(destZip string, asOf time.Time) (rates.Tier, decimal.Decimal) {
	tier := rates.TierNone
	if r.das != nil {
		tier = r.das.Classify(destZip, asOf)
	}
	return tier, r.rates.DASFee(tier)
}

func validateDimensions(s model.ShipmentRecord) error {
	check := func(field string, v decimal.Decimal) error {
		if !money.IsPositive(v) {
			return model.NewReconstructionError(model.ReconstructionInvalidDimensions,
				s.TrackingNumber, field, "must be positive, got "+v.String())
		}
		return nil
	}
	if err := check("length", s.Length); err != nil {
		return err
	}
	if err := check("width", s.Width); err != nil {
		return err
	}
	if err := check("height", s.Height); err != nil {
		return err
	}
	return check("actual_weight", s.ActualWeight)
}
