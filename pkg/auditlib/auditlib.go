// Package auditlib provides a public API for auditing parcel-carrier
// shipping invoices.
//
// It exposes the core types for reconstructing expected shipment charges,
// classifying destination ZIPs into delivery-area-surcharge tiers, and
// producing categorized overcharge findings.
//
// Example usage:
//
//	auditor := auditlib.NewAuditor(auditlib.DefaultOptions())
//	auditor.IngestDAS(auditlib.TierDASExtended, "83400-83499", effectiveDate)
//	auditor.PublishDAS()
//	report, err := auditor.Audit(ctx, shipments)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(report.TotalPotentialSavings)
package auditlib

import (
	"github.com/rezonia/parcel-audit/internal/model"
	"github.com/rezonia/parcel-audit/internal/rates"
)

// Re-export core types for public API
type (
	ShipmentRecord    = model.ShipmentRecord
	SurchargeLines    = model.SurchargeLines
	ExpectedCharge    = model.ExpectedCharge
	OverchargeFinding = model.OverchargeFinding
	FindingCategory   = model.FindingCategory
	DataQualityIssue  = model.DataQualityIssue
	AuditReport       = model.AuditReport
	Summary           = model.Summary
	ServiceType       = rates.ServiceType
	Tier              = rates.Tier
	RateModel         = rates.Model
)

// Re-export service types
const (
	ServiceGround         = rates.ServiceGround
	ServiceNextDayAir     = rates.ServiceNextDayAir
	ServiceSecondDayAir   = rates.ServiceSecondDayAir
	ServiceThreeDaySelect = rates.ServiceThreeDaySelect
)

// Re-export DAS tiers
const (
	TierNone        = rates.TierNone
	TierDAS         = rates.TierDAS
	TierDASExtended = rates.TierDASExtended
	TierDASRemote   = rates.TierDASRemote
)

// Re-export finding categories
const (
	CategoryDimensionalWeight    = model.CategoryDimensionalWeight
	CategoryDuplicateBilling     = model.CategoryDuplicateBilling
	CategoryAddressCorrection    = model.CategoryAddressCorrection
	CategoryLateDelivery         = model.CategoryLateDelivery
	CategoryResidentialSurcharge = model.CategoryResidentialSurcharge
	CategoryWrongSeasonPeak      = model.CategoryWrongSeasonPeak
	CategoryDASMisclassification = model.CategoryDASMisclassification
)

// Re-export error types
type (
	IngestError         = model.IngestError
	ReconstructionError = model.ReconstructionError
)

// DefaultRates returns the published-rate defaults.
func DefaultRates() *RateModel {
	return rates.Default()
}
