// Package rates holds the published rate and surcharge tables the audit
// recomputes charges from. All amounts are configurable; the defaults
// reflect the carrier's published domestic rates.
package rates

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/parcel-audit/internal/money"
)

// Tier is the delivery-area-surcharge classification of a destination ZIP.
type Tier string

const (
	TierNone        Tier = "NONE"
	TierDAS         Tier = "DAS"
	TierDASExtended Tier = "DAS_EXTENDED"
	TierDASRemote   Tier = "DAS_REMOTE"
)

// Rank orders tiers by restrictiveness. Used as the tie-break when two
// publications assign different tiers with the same effective date: the
// more restrictive tier wins.
func (t Tier) Rank() int {
	switch t {
	case TierDAS:
		return 1
	case TierDASExtended:
		return 2
	case TierDASRemote:
		return 3
	default:
		return 0
	}
}

// ParseTier parses a tier name, case-insensitively.
func ParseTier(s string) (Tier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE", "":
		return TierNone, nil
	case "DAS":
		return TierDAS, nil
	case "DAS_EXTENDED", "DAS EXTENDED", "EXTENDED":
		return TierDASExtended, nil
	case "DAS_REMOTE", "DAS REMOTE", "REMOTE":
		return TierDASRemote, nil
	}
	return TierNone, fmt.Errorf("unknown DAS tier %q", s)
}

// ServiceType identifies the carrier service level.
type ServiceType string

const (
	ServiceGround         ServiceType = "GROUND"
	ServiceNextDayAir     ServiceType = "NEXT_DAY_AIR"
	ServiceSecondDayAir   ServiceType = "2ND_DAY_AIR"
	ServiceThreeDaySelect ServiceType = "3_DAY_SELECT"
)

// Guaranteed reports whether the service carries a money-back delivery
// guarantee (full refund on a missed commitment).
func (s ServiceType) Guaranteed() bool {
	return s == ServiceNextDayAir || s == ServiceSecondDayAir
}

// Model is the rate table used to reconstruct expected charges: service
// base rates, per-pound zone rates, flat surcharge fees, dimensional
// divisors, the fuel percentage and the declared peak window.
type Model struct {
	BaseRates map[ServiceType]decimal.Decimal
	// PerPound is the zone-2 per-pound rate per service; higher zones are
	// scaled by ZoneMultipliers.
	PerPound        map[ServiceType]decimal.Decimal
	ZoneMultipliers map[int]decimal.Decimal

	// FuelRate fluctuates weekly in reality, so it is an input, not a
	// constant. Expressed as a fraction of the base charge.
	FuelRate decimal.Decimal

	ResidentialFee        decimal.Decimal
	AddressCorrectionFee  decimal.Decimal
	SaturdayDeliveryFee   decimal.Decimal
	LargePackageFee       decimal.Decimal
	AdditionalHandlingFee decimal.Decimal
	PeakSeasonFee         decimal.Decimal

	DASFees map[Tier]decimal.Decimal

	DomesticDivisor      decimal.Decimal
	InternationalDivisor decimal.Decimal

	// LargePackageGirthLimit triggers the large-package fee when
	// length + 2*(width+height) exceeds it, in inches.
	LargePackageGirthLimit decimal.Decimal
	// AdditionalHandlingWeight triggers the additional-handling fee when
	// actual weight exceeds it, in pounds.
	AdditionalHandlingWeight decimal.Decimal

	// PeakMonths is the carrier-declared peak window.
	PeakMonths map[time.Month]bool
}

// Default returns the published-rate defaults used when the caller does
// not supply its own table.
func Default() *Model {
	return &Model{
		BaseRates: map[ServiceType]decimal.Decimal{
			ServiceGround:         money.FromInt(15),
			ServiceNextDayAir:     money.FromInt(85),
			ServiceSecondDayAir:   money.FromInt(45),
			ServiceThreeDaySelect: money.FromInt(25),
		},
		PerPound: map[ServiceType]decimal.Decimal{
			ServiceGround:         money.MustFromString("0.55"),
			ServiceNextDayAir:     money.MustFromString("1.60"),
			ServiceSecondDayAir:   money.MustFromString("1.10"),
			ServiceThreeDaySelect: money.MustFromString("0.75"),
		},
		ZoneMultipliers: map[int]decimal.Decimal{
			2: money.MustFromString("1.00"),
			3: money.MustFromString("1.10"),
			4: money.MustFromString("1.20"),
			5: money.MustFromString("1.30"),
			6: money.MustFromString("1.40"),
			7: money.MustFromString("1.50"),
			8: money.MustFromString("1.60"),
		},
		FuelRate:              money.MustFromString("0.065"),
		ResidentialFee:        money.MustFromString("5.20"),
		AddressCorrectionFee:  money.MustFromString("18.00"),
		SaturdayDeliveryFee:   money.MustFromString("16.00"),
		LargePackageFee:       money.MustFromString("95.00"),
		AdditionalHandlingFee: money.MustFromString("24.00"),
		PeakSeasonFee:         money.MustFromString("5.95"),
		DASFees: map[Tier]decimal.Decimal{
			TierNone:        money.Zero,
			TierDAS:         money.MustFromString("5.85"),
			TierDASExtended: money.MustFromString("8.30"),
			TierDASRemote:   money.MustFromString("14.15"),
		},
		DomesticDivisor:          money.FromInt(139),
		InternationalDivisor:     money.FromInt(166),
		LargePackageGirthLimit:   money.FromInt(96),
		AdditionalHandlingWeight: money.FromInt(70),
		PeakMonths: map[time.Month]bool{
			time.November: true,
			time.December: true,
			time.January:  true,
		},
	}
}

// BaseRate returns the flat base rate for a service.
func (m *Model) BaseRate(svc ServiceType) (decimal.Decimal, bool) {
	r, ok := m.BaseRates[svc]
	return r, ok
}

// PerPoundRate returns the per-pound rate for a service in a zone.
// Unknown zones fall back to the zone-2 rate.
func (m *Model) PerPoundRate(svc ServiceType, zone int) (decimal.Decimal, bool) {
	base, ok := m.PerPound[svc]
	if !ok {
		return money.Zero, false
	}
	mult, ok := m.ZoneMultipliers[zone]
	if !ok {
		return base, true
	}
	return money.Mul(base, mult), true
}

// DASFee returns the delivery-area surcharge for a tier. Unlisted tiers
// carry no fee.
func (m *Model) DASFee(t Tier) decimal.Decimal {
	fee, ok := m.DASFees[t]
	if !ok {
		return money.Zero
	}
	return fee
}

// Divisor returns the dimensional divisor for an origin/destination
// country pair. Missing country data defaults to domestic.
func (m *Model) Divisor(originCountry, destCountry string) decimal.Decimal {
	o := strings.ToUpper(strings.TrimSpace(originCountry))
	d := strings.ToUpper(strings.TrimSpace(destCountry))
	if o != "" && d != "" && o != d {
		return m.InternationalDivisor
	}
	return m.DomesticDivisor
}

// InPeakWindow reports whether a date falls inside the declared peak
// season. This is the authoritative season test for peak surcharges.
func (m *Model) InPeakWindow(t time.Time) bool {
	return m.PeakMonths[t.Month()]
}
