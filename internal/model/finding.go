package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/parcel-audit/internal/rates"
)

// FindingCategory names one class of billing anomaly. Categories are
// independent claim types; a shipment may appear under several.
type FindingCategory string

const (
	CategoryDimensionalWeight    FindingCategory = "DIMENSIONAL_WEIGHT_ERROR"
	CategoryDuplicateBilling     FindingCategory = "DUPLICATE_BILLING"
	CategoryAddressCorrection    FindingCategory = "INVALID_ADDRESS_CORRECTION"
	CategoryLateDelivery         FindingCategory = "LATE_DELIVERY_REFUND"
	CategoryResidentialSurcharge FindingCategory = "INVALID_RESIDENTIAL_SURCHARGE"
	CategoryWrongSeasonPeak      FindingCategory = "WRONG_SEASON_PEAK"
	CategoryDASMisclassification FindingCategory = "DAS_MISCLASSIFICATION"
)

// CategoryOrder fixes the report ordering of findings.
var CategoryOrder = []FindingCategory{
	CategoryDimensionalWeight,
	CategoryDuplicateBilling,
	CategoryAddressCorrection,
	CategoryLateDelivery,
	CategoryResidentialSurcharge,
	CategoryWrongSeasonPeak,
	CategoryDASMisclassification,
}

// OverchargeFinding aggregates one anomaly category across a batch.
// Read-only once produced.
type OverchargeFinding struct {
	Category FindingCategory `json:"category"`
	Count    int             `json:"count"`
	// PotentialSavings is the recoverable amount; exact for deterministic
	// categories, an estimate for review-candidate ones.
	PotentialSavings decimal.Decimal `json:"potential_savings"`
	// NetAdjustment includes undercharges (negative differences). Only
	// the DAS category can diverge from PotentialSavings; undercharges
	// affect net reconciliation but never drive savings.
	NetAdjustment decimal.Decimal `json:"net_adjustment"`
	// Review marks estimate-based categories that need caller follow-up
	// rather than asserting certainty.
	Review bool `json:"review"`
	// Sample holds the first affected tracking numbers in batch order.
	Sample []string `json:"sample"`
}

// DataQualityIssue records a shipment excluded from charge findings
// because its expected charge could not be reconstructed.
type DataQualityIssue struct {
	TrackingNumber string `json:"tracking_number"`
	Reason         string `json:"reason"`
}

// Summary carries batch-level statistics alongside the findings.
type Summary struct {
	TotalShipments   int                       `json:"total_shipments"`
	AuditedShipments int                       `json:"audited_shipments"`
	TotalBilled      decimal.Decimal           `json:"total_billed"`
	TotalExpected    decimal.Decimal           `json:"total_expected"`
	AverageCharge    decimal.Decimal           `json:"average_charge"`
	ServiceBreakdown map[rates.ServiceType]int `json:"service_breakdown"`
	// DASUndercharge totals negative DAS differences for reconciliation.
	DASUndercharge decimal.Decimal `json:"das_undercharge"`
}

// AuditReport is the full output of one audit run.
type AuditReport struct {
	RunID                 string              `json:"run_id"`
	GeneratedAt           time.Time           `json:"generated_at"`
	Findings              []OverchargeFinding `json:"findings"`
	TotalPotentialSavings decimal.Decimal     `json:"total_potential_savings"`
	Summary               Summary             `json:"summary"`
	DataQualityIssues     []DataQualityIssue  `json:"data_quality_issues,omitempty"`
}
