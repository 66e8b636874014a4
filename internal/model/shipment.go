package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/parcel-audit/internal/rates"
)

// SurchargeLines holds the per-surcharge amounts billed on an invoice row.
// A zero amount means the surcharge was not billed.
type SurchargeLines struct {
	Residential        decimal.Decimal `json:"residential"`
	AddressCorrection  decimal.Decimal `json:"address_correction"`
	Fuel               decimal.Decimal `json:"fuel"`
	PeakSeason         decimal.Decimal `json:"peak_season"`
	LargePackage       decimal.Decimal `json:"large_package"`
	AdditionalHandling decimal.Decimal `json:"additional_handling"`
	SaturdayDelivery   decimal.Decimal `json:"saturday_delivery"`
	DeliveryArea       decimal.Decimal `json:"delivery_area"`
}

// ShipmentRecord is one billed parcel as it appears on a carrier invoice.
// Records are constructed once at the ingestion boundary and never mutated.
// Tracking numbers are normally unique; duplicates are a detectable billing
// error, not a model invariant.
type ShipmentRecord struct {
	TrackingNumber string            `json:"tracking_number"`
	InvoiceNumber  string            `json:"invoice_number"`
	AccountNumber  string            `json:"account_number,omitempty"`
	InvoiceDate    time.Time         `json:"invoice_date"`
	Service        rates.ServiceType `json:"service"`

	OriginZip     string `json:"origin_zip"`
	DestZip       string `json:"dest_zip"`
	OriginCountry string `json:"origin_country,omitempty"`
	DestCountry   string `json:"dest_country,omitempty"`
	Zone          int    `json:"zone"`

	// Dimensions in inches, weights in pounds.
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`

	ActualWeight decimal.Decimal `json:"actual_weight"`
	BilledWeight decimal.Decimal `json:"billed_weight"`

	PublishedCharge decimal.Decimal `json:"published_charge"`
	NetCharge       decimal.Decimal `json:"net_charge"`
	Surcharges      SurchargeLines  `json:"surcharges"`

	ResidentialDelivery bool `json:"residential_delivery"`
	AddressCorrected    bool `json:"address_corrected"`
	SaturdayDelivery    bool `json:"saturday_delivery"`

	ExpectedTransitDays int  `json:"expected_transit_days"`
	ActualTransitDays   int  `json:"actual_transit_days"`
	OnTimeDelivery      bool `json:"on_time_delivery"`
}

// ExpectedCharge is the reconstructed cost of one shipment under the
// published rules, independent of what was billed. Computed fresh per
// audit run, never persisted.
type ExpectedCharge struct {
	DimensionalWeight    decimal.Decimal            `json:"dimensional_weight"`
	BilledWeightExpected decimal.Decimal            `json:"billed_weight_expected"`
	BaseCharge           decimal.Decimal            `json:"base_charge"`
	DASTier              rates.Tier                 `json:"das_tier"`
	Surcharges           map[string]decimal.Decimal `json:"surcharges"`
	TotalExpected        decimal.Decimal            `json:"total_expected"`
}

// SurchargeTotal sums the reconstructed surcharge breakdown.
func (c *ExpectedCharge) SurchargeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, v := range c.Surcharges {
		total = total.Add(v)
	}
	return total
}
