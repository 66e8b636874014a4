package model

import "fmt"

// IngestReason classifies DAS ingestion failures
type IngestReason string

const (
	IngestMalformedRange    IngestReason = "malformed_range"
	IngestDuplicateConflict IngestReason = "duplicate_conflict"
)

// IngestError represents a failure to ingest one DAS publication entry
type IngestError struct {
	Reason  IngestReason
	Entry   string
	Message string
	Cause   error
}

func (e *IngestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ingest [%s] %q: %s (%v)", e.Reason, e.Entry, e.Message, e.Cause)
	}
	return fmt.Sprintf("ingest [%s] %q: %s", e.Reason, e.Entry, e.Message)
}

func (e *IngestError) Unwrap() error {
	return e.Cause
}

// NewIngestError creates a new ingest error
func NewIngestError(reason IngestReason, entry, message string, cause error) *IngestError {
	return &IngestError{
		Reason:  reason,
		Entry:   entry,
		Message: message,
		Cause:   cause,
	}
}

// ReconstructionReason classifies per-shipment reconstruction failures
type ReconstructionReason string

const (
	ReconstructionInvalidDimensions ReconstructionReason = "invalid_dimensions"
	ReconstructionUnknownService    ReconstructionReason = "unknown_service"
)

// ReconstructionError represents a per-shipment failure to recompute the
// expected charge. These never abort a batch audit; the offending shipment
// is reported as a data quality issue instead.
type ReconstructionError struct {
	Reason         ReconstructionReason
	TrackingNumber string
	Field          string
	Message        string
}

func (e *ReconstructionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("reconstruction [%s] shipment %s: %s (field=%s)", e.Reason, e.TrackingNumber, e.Message, e.Field)
	}
	return fmt.Sprintf("reconstruction [%s] shipment %s: %s", e.Reason, e.TrackingNumber, e.Message)
}

// NewReconstructionError creates a new reconstruction error
func NewReconstructionError(reason ReconstructionReason, trackingNumber, field, message string) *ReconstructionError {
	return &ReconstructionError{
		Reason:         reason,
		TrackingNumber: trackingNumber,
		Field:          field,
		Message:        message,
	}
}
