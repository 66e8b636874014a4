package server

import (
	"time"

	"github.com/rezonia/parcel-audit/internal/model"
)

// IngestRequest carries publication tuples for the DAS table.
type IngestRequest struct {
	Records []IngestRecord `json:"records" binding:"required"`
}

// IngestRecord is one (kind, zip_or_range, effective_date) tuple.
type IngestRecord struct {
	Kind          string `json:"kind" binding:"required"`
	Zip           string `json:"zip" binding:"required"`
	EffectiveDate string `json:"effective_date" binding:"required"`
}

// IngestResponse reports what a feed ingest did.
type IngestResponse struct {
	Inserted int      `json:"inserted"`
	Errors   []string `json:"errors,omitempty"`
	Zips     int      `json:"zips"`
}

// ClassifyResponse answers a tier lookup.
type ClassifyResponse struct {
	Zip  string    `json:"zip"`
	AsOf time.Time `json:"as_of"`
	Tier string    `json:"tier"`
}

// AuditRequest carries a shipment batch.
type AuditRequest struct {
	Shipments []model.ShipmentRecord `json:"shipments" binding:"required"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	DASZips int    `json:"das_zips"`
}
