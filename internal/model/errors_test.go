package model_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/parcel-audit/internal/model"
)

func TestIngestError(t *testing.T) {
	cause := fmt.Errorf("bound %q is not 5 digits", "3054")
	err := model.NewIngestError(model.IngestMalformedRange, "3054-30549", "bad range start", cause)

	assert.Contains(t, err.Error(), "malformed_range")
	assert.Contains(t, err.Error(), "3054-30549")
	assert.ErrorIs(t, err, cause)

	var ingestErr *model.IngestError
	require.True(t, errors.As(error(err), &ingestErr))
	assert.Equal(t, model.IngestMalformedRange, ingestErr.Reason)
}

func TestIngestError_NoCause(t *testing.T) {
	err := model.NewIngestError(model.IngestDuplicateConflict, "96088", "tier DAS conflicts with DAS_EXTENDED", nil)

	assert.Contains(t, err.Error(), "duplicate_conflict")
	assert.NoError(t, err.Unwrap())
}

func TestReconstructionError(t *testing.T) {
	err := model.NewReconstructionError(model.ReconstructionInvalidDimensions, "1Z01", "width", "must be positive, got -3")

	assert.Contains(t, err.Error(), "invalid_dimensions")
	assert.Contains(t, err.Error(), "1Z01")
	assert.Contains(t, err.Error(), "field=width")

	svcErr := model.NewReconstructionError(model.ReconstructionUnknownService, "1Z02", "", "service type not in rate model: BALLOON")
	assert.Contains(t, svcErr.Error(), "unknown_service")
	assert.NotContains(t, svcErr.Error(), "field=")
}
