package reconstruct_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/parcel-audit/internal/das"
	"github.com/rezonia/parcel-audit/internal/model"
	"github.com/rezonia/parcel-audit/internal/money"
	"github.com/rezonia/parcel-audit/internal/rates"
	"github.com/rezonia/parcel-audit/internal/reconstruct"
)

func dec(s string) decimal.Decimal { return money.MustFromString(s) }

// baseShipment is a plain off-peak ground shipment with no surcharges.
func baseShipment() model.ShipmentRecord {
	return model.ShipmentRecord{
		TrackingNumber: "1Z999AA10000000001",
		InvoiceDate:    time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		Service:        rates.ServiceGround,
		OriginZip:      "40202",
		DestZip:        "90210",
		Zone:           2,
		Length:         dec("10"),
		Width:          dec("8"),
		Height:         dec("6"),
		ActualWeight:   dec("12.0"),
		BilledWeight:   dec("12.0"),
	}
}

// bareRates strips the fuel percentage so the no-surcharge round trip
// holds exactly.
func bareRates() *rates.Model {
	m := rates.Default()
	m.FuelRate = decimal.Zero
	return m
}

func TestReconstruct_DimWeightActualGoverns(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	// 10*8*6/139 = 3.453..., rounds to 3.5; actual 12.0 governs
	e, err := r.Reconstruct(baseShipment())
	require.NoError(t, err)
	assert.True(t, e.DimensionalWeight.Equal(dec("3.5")), "got %s", e.DimensionalWeight)
	assert.True(t, e.BilledWeightExpected.Equal(dec("12.0")))
}

func TestReconstruct_DimWeightGoverns(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	s := baseShipment()
	s.Length = dec("24")
	s.Width = dec("18")
	s.Height = dec("12")
	s.ActualWeight = dec("8.0")

	// 24*18*12/139 = 37.295..., rounds to 37.3
	e, err := r.Reconstruct(s)
	require.NoError(t, err)
	assert.True(t, e.DimensionalWeight.Equal(dec("37.3")), "got %s", e.DimensionalWeight)
	assert.True(t, e.BilledWeightExpected.Equal(dec("37.3")))
}

func TestReconstruct_DimWeightPermutationInvariant(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	perms := [][3]string{
		{"24", "18", "12"},
		{"18", "24", "12"},
		{"12", "18", "24"},
	}
	var first decimal.Decimal
	for i, p := range perms {
		s := baseShipment()
		s.Length, s.Width, s.Height = dec(p[0]), dec(p[1]), dec(p[2])
		s.ActualWeight = dec("1.0")
		e, err := r.Reconstruct(s)
		require.NoError(t, err)
		if i == 0 {
			first = e.DimensionalWeight
			continue
		}
		assert.True(t, e.DimensionalWeight.Equal(first),
			"permutation %v changed dim weight: %s vs %s", p, e.DimensionalWeight, first)
	}
}

func TestReconstruct_InternationalDivisor(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	s := baseShipment()
	s.Length, s.Width, s.Height = dec("24"), dec("18"), dec("12")
	s.ActualWeight = dec("1.0")
	s.OriginCountry = "US"
	s.DestCountry = "CA"

	// 24*18*12/166 = 31.228..., rounds to 31.2
	e, err := r.Reconstruct(s)
	require.NoError(t, err)
	assert.True(t, e.DimensionalWeight.Equal(dec("31.2")), "got %s", e.DimensionalWeight)
}

func TestReconstruct_BaseCharge(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	// base 15.00 + 12.0 lb * 0.55/lb = 21.60
	e, err := r.Reconstruct(baseShipment())
	require.NoError(t, err)
	assert.True(t, e.BaseCharge.Equal(dec("21.60")), "got %s", e.BaseCharge)
}

func TestReconstruct_RoundTripNoSurcharges(t *testing.T) {
	// With every surcharge trigger off, the total is exactly the base.
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	e, err := r.Reconstruct(baseShipment())
	require.NoError(t, err)
	assert.Empty(t, e.Surcharges)
	assert.True(t, e.TotalExpected.Equal(e.BaseCharge),
		"total %s != base %s", e.TotalExpected, e.BaseCharge)
}

func TestReconstruct_FuelOnBase(t *testing.T) {
	r := reconstruct.New(rates.Default(), nil, reconstruct.DefaultOptions())

	// base 21.60 * 0.065 = 1.404, rounds to 1.40
	e, err := r.Reconstruct(baseShipment())
	require.NoError(t, err)
	fuel, ok := e.Surcharges[reconstruct.SurchargeFuel]
	require.True(t, ok)
	assert.True(t, fuel.Equal(dec("1.40")), "got %s", fuel)
}

func TestReconstruct_FlagSurcharges(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	s := baseShipment()
	s.ResidentialDelivery = true
	s.AddressCorrected = true
	s.SaturdayDelivery = true

	e, err := r.Reconstruct(s)
	require.NoError(t, err)
	assert.True(t, e.Surcharges[reconstruct.SurchargeResidential].Equal(dec("5.20")))
	assert.True(t, e.Surcharges[reconstruct.SurchargeAddressCorrection].Equal(dec("18.00")))
	assert.True(t, e.Surcharges[reconstruct.SurchargeSaturdayDelivery].Equal(dec("16.00")))
	assert.True(t, e.TotalExpected.Equal(e.BaseCharge.Add(dec("39.20"))))
}

func TestReconstruct_LargePackageGirth(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	tests := []struct {
		name    string
		l, w, h string
		want    bool
	}{
		{"under limit", "40", "10", "10", false}, // 40+2*20 = 80
		{"at limit", "48", "12", "12", false},    // 48+2*24 = 96, not over
		{"over limit", "50", "12", "12", true},   // 50+2*24 = 98
		{"long and thin", "90", "2", "2", true},  // 90+2*4 = 98
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := baseShipment()
			s.Length, s.Width, s.Height = dec(tt.l), dec(tt.w), dec(tt.h)
			e, err := r.Reconstruct(s)
			require.NoError(t, err)
			_, got := e.Surcharges[reconstruct.SurchargeLargePackage]
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconstruct_AdditionalHandlingWeight(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	s := baseShipment()
	s.ActualWeight = dec("70.0")
	e, err := r.Reconstruct(s)
	require.NoError(t, err)
	_, got := e.Surcharges[reconstruct.SurchargeAdditionalHandling]
	assert.False(t, got, "70 lb is not over the threshold")

	s.ActualWeight = dec("70.5")
	e, err = r.Reconstruct(s)
	require.NoError(t, err)
	fee, got := e.Surcharges[reconstruct.SurchargeAdditionalHandling]
	require.True(t, got)
	assert.True(t, fee.Equal(dec("24.00")))
}

func TestReconstruct_PeakSeason(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	s := baseShipment()
	s.InvoiceDate = time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	e, err := r.Reconstruct(s)
	require.NoError(t, err)
	fee, ok := e.Surcharges[reconstruct.SurchargePeakSeason]
	require.True(t, ok)
	assert.True(t, fee.Equal(dec("5.95")))

	s.InvoiceDate = time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	e, err = r.Reconstruct(s)
	require.NoError(t, err)
	_, ok = e.Surcharges[reconstruct.SurchargePeakSeason]
	assert.False(t, ok)
}

func TestReconstruct_DeliveryAreaFromClassifier(t *testing.T) {
	b := das.NewBuilder()
	_, err := b.Ingest(rates.TierDASExtended, "90210", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	r := reconstruct.New(bareRates(), b.Publish(), reconstruct.DefaultOptions())

	e, err := r.Reconstruct(baseShipment())
	require.NoError(t, err)
	assert.Equal(t, rates.TierDASExtended, e.DASTier)
	fee, ok := e.Surcharges[reconstruct.SurchargeDeliveryArea]
	require.True(t, ok)
	assert.True(t, fee.Equal(dec("8.30")))

	// The tier is resolved as of the invoice date, not today
	s := baseShipment()
	s.InvoiceDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	e, err = r.Reconstruct(s)
	require.NoError(t, err)
	assert.Equal(t, rates.TierNone, e.DASTier)
	_, ok = e.Surcharges[reconstruct.SurchargeDeliveryArea]
	assert.False(t, ok)
}

func TestReconstruct_NilClassifier(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	e, err := r.Reconstruct(baseShipment())
	require.NoError(t, err)
	assert.Equal(t, rates.TierNone, e.DASTier)
}

func TestReconstruct_InvalidDimensions(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	tests := []struct {
		name   string
		mutate func(*model.ShipmentRecord)
		field  string
	}{
		{"zero length", func(s *model.ShipmentRecord) { s.Length = decimal.Zero }, "length"},
		{"negative width", func(s *model.ShipmentRecord) { s.Width = dec("-3") }, "width"},
		{"zero height", func(s *model.ShipmentRecord) { s.Height = decimal.Zero }, "height"},
		{"zero weight", func(s *model.ShipmentRecord) { s.ActualWeight = decimal.Zero }, "actual_weight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := baseShipment()
			tt.mutate(&s)
			_, err := r.Reconstruct(s)
			require.Error(t, err)

			var rerr *model.ReconstructionError
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, model.ReconstructionInvalidDimensions, rerr.Reason)
			assert.Equal(t, tt.field, rerr.Field)
			assert.Equal(t, s.TrackingNumber, rerr.TrackingNumber)
		})
	}
}

func TestReconstruct_UnknownService(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	s := baseShipment()
	s.Service = "CARRIER_PIGEON"
	_, err := r.Reconstruct(s)
	require.Error(t, err)

	var rerr *model.ReconstructionError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, model.ReconstructionUnknownService, rerr.Reason)
}

func TestTolerance(t *testing.T) {
	r := reconstruct.New(bareRates(), nil, reconstruct.DefaultOptions())

	// The flat $0.05 floor governs until enough components stack up
	assert.True(t, r.Tolerance(1).Equal(dec("0.05")))
	assert.True(t, r.Tolerance(5).Equal(dec("0.05")))
	assert.True(t, r.Tolerance(6).Equal(dec("0.06")))
	assert.True(t, r.Tolerance(0).Equal(dec("0.05")))
}

func TestExpectedDASFee(t *testing.T) {
	b := das.NewBuilder()
	_, err := b.Ingest(rates.TierDASRemote, "59624", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	r := reconstruct.New(bareRates(), b.Publish(), reconstruct.DefaultOptions())

	tier, fee := r.ExpectedDASFee("59624", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, rates.TierDASRemote, tier)
	assert.True(t, fee.Equal(dec("14.15")))

	tier, fee = r.ExpectedDASFee("10001", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, rates.TierNone, tier)
	assert.True(t, fee.IsZero())
}
