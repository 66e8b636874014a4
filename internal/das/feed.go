package das

import (
	"fmt"
	"strings"
	"time"

	"github.com/rezonia/parcel-audit/internal/rates"
)

// ChangeKind names a section of a carrier change publication. "Removed"
// kinds map to TierNone so history is preserved instead of deleting.
type ChangeKind string

const (
	ChangeAddedToContiguous   ChangeKind = "ADDED_TO_CONTIGUOUS"
	ChangeMovedToExtended     ChangeKind = "MOVED_TO_EXTENDED"
	ChangeMovedToContiguous   ChangeKind = "MOVED_TO_CONTIGUOUS"
	ChangeMovedToRemote       ChangeKind = "MOVED_TO_REMOTE"
	ChangeRemovedFromList     ChangeKind = "REMOVED"
	ChangeRemovedFromRemote   ChangeKind = "REMOVED_FROM_REMOTE"
	ChangeRemovedFromExtended ChangeKind = "REMOVED_FROM_EXTENDED"
)

// tierFor maps a change kind to the tier it assigns.
func (k ChangeKind) tierFor() (rates.Tier, bool) {
	switch k {
	case ChangeAddedToContiguous, ChangeMovedToContiguous:
		return rates.TierDAS, true
	case ChangeMovedToExtended:
		return rates.TierDASExtended, true
	case ChangeMovedToRemote:
		return rates.TierDASRemote, true
	case ChangeRemovedFromList, ChangeRemovedFromRemote, ChangeRemovedFromExtended:
		return rates.TierNone, true
	}
	return rates.TierNone, false
}

// ChangeRecord is one already-segmented publication tuple: a tier (or a
// change kind that implies one), a ZIP or range, and the publication's
// effective date. Raw document text never reaches this layer.
type ChangeRecord struct {
	Kind          string    `json:"kind"`
	ZipOrRange    string    `json:"zip"`
	EffectiveDate time.Time `json:"effective_date"`
}

// Tier resolves the record's Kind, accepting either a tier name or a
// change-kind name.
func (r ChangeRecord) Tier() (rates.Tier, error) {
	kind := ChangeKind(strings.ToUpper(strings.TrimSpace(r.Kind)))
	if tier, ok := kind.tierFor(); ok {
		return tier, nil
	}
	tier, err := rates.ParseTier(r.Kind)
	if err != nil {
		return rates.TierNone, fmt.Errorf("change record %q: %w", r.ZipOrRange, err)
	}
	return tier, nil
}
