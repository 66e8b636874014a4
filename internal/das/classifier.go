// Package das maintains the time-versioned ZIP to delivery-area-surcharge
// tier mapping built from carrier publications, and answers point-in-time
// classification queries.
//
// Ingestion is a write phase on a Builder; Publish produces an immutable
// Table that is safe for unlimited concurrent readers. Entries are
// append-only: a reclassification supersedes earlier entries by effective
// date, it never deletes them, so invoices dated before a change still
// classify correctly.
package das

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rezonia/parcel-audit/internal/model"
	"github.com/rezonia/parcel-audit/internal/rates"
)

// Entry is one effective-dated tier assignment for a ZIP.
type Entry struct {
	Zip           string     `json:"zip"`
	Tier          rates.Tier `json:"tier"`
	EffectiveDate time.Time  `json:"effective_date"`
}

type entryKey struct {
	zip  string
	tier rates.Tier
	date string
}

// Builder accumulates publication entries before the table is published.
// Not safe for concurrent use; build fully, then Publish.
type Builder struct {
	entries   map[string][]Entry
	seen      map[entryKey]struct{}
	conflicts []*model.IngestError
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		entries: make(map[string][]Entry),
		seen:    make(map[entryKey]struct{}),
	}
}

// Ingest records a tier assignment for a single 5-digit ZIP or an
// inclusive range "AAAAA-BBBBB". Ranges expand to individual zero-padded
// ZIPs before insertion. Re-ingesting an identical (zip, tier, date)
// entry is a no-op, so feeds can be replayed safely. Returns the number
// of entries actually inserted.
//
// A ZIP removed from a carrier list is ingested as a TierNone entry with
// the feed's effective date, never deleted.
func (b *Builder) Ingest(tier rates.Tier, zipOrRange string, effective time.Time) (int, error) {
	zips, err := expandZipOrRange(zipOrRange)
	if err != nil {
		return 0, err
	}

	inserted := 0
	day := effective.Format("2006-01-02")
	for _, zip := range zips {
		key := entryKey{zip: zip, tier: tier, date: day}
		if _, dup := b.seen[key]; dup {
			continue
		}
		if other, ok := b.sameDateTier(zip, day); ok && other != tier {
			// Two publications disagree on the same date. Non-fatal: both
			// entries are kept and the restrictiveness rank decides at
			// classification time.
			b.conflicts = append(b.conflicts, model.NewIngestError(
				model.IngestDuplicateConflict, zip,
				fmt.Sprintf("tier %s conflicts with %s effective %s", tier, other, day), nil))
		}
		b.seen[key] = struct{}{}
		b.entries[zip] = append(b.entries[zip], Entry{Zip: zip, Tier: tier, EffectiveDate: effective})
		inserted++
	}
	return inserted, nil
}

// IngestEntries replays previously exported entries, e.g. when rebuilding
// the table from persistence.
func (b *Builder) IngestEntries(entries []Entry) (int, []error) {
	inserted := 0
	var errs []error
	for _, e := range entries {
		n, err := b.Ingest(e.Tier, e.Zip, e.EffectiveDate)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		inserted += n
	}
	return inserted, errs
}

// IngestFeed ingests a whole publication feed. A malformed entry never
// aborts the rest of the feed; all entry errors are collected and
// returned alongside the insert count.
func (b *Builder) IngestFeed(records []ChangeRecord) (int, []error) {
	inserted := 0
	var errs []error
	for _, rec := range records {
		tier, err := rec.Tier()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n, err := b.Ingest(tier, rec.ZipOrRange, rec.EffectiveDate)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		inserted += n
	}
	if len(errs) > 0 {
		log.Printf("[das] feed ingested with %d malformed entries (%d inserted)", len(errs), inserted)
	}
	return inserted, errs
}

// Conflicts returns the same-date tier disagreements seen so far. These
// are informational; classification resolves them by restrictiveness.
func (b *Builder) Conflicts() []*model.IngestError {
	out := make([]*model.IngestError, len(b.conflicts))
	copy(out, b.conflicts)
	return out
}

// Publish freezes the builder contents into an immutable lookup table.
// The builder remains usable; a later Publish yields a new snapshot.
func (b *Builder) Publish() *Table {
	entries := make(map[string][]Entry, len(b.entries))
	for zip, hist := range b.entries {
		cp := make([]Entry, len(hist))
		copy(cp, hist)
		// Date ascending; equal dates by restrictiveness ascending, so the
		// last match during lookup is the one that wins the tie.
		sort.SliceStable(cp, func(i, j int) bool {
			if !cp[i].EffectiveDate.Equal(cp[j].EffectiveDate) {
				return cp[i].EffectiveDate.Before(cp[j].EffectiveDate)
			}
			return cp[i].Tier.Rank() < cp[j].Tier.Rank()
		})
		entries[zip] = cp
	}
	return &Table{entries: entries}
}

func (b *Builder) sameDateTier(zip, day string) (rates.Tier, bool) {
	for _, e := range b.entries[zip] {
		if e.EffectiveDate.Format("2006-01-02") == day {
			return e.Tier, true
		}
	}
	return rates.TierNone, false
}

// Table answers ZIP tier lookups. Immutable once published.
type Table struct {
	entries map[string][]Entry
}

// Classify returns the tier of the entry with the latest effective date
// at or before asOf. Unknown ZIPs and dates before any entry return
// TierNone. Lookup is a direct map access plus a scan of the small
// per-ZIP history.
func (t *Table) Classify(zip string, asOf time.Time) rates.Tier {
	padded, err := normalizeZip(zip)
	if err != nil {
		return rates.TierNone
	}
	hist := t.entries[padded]
	for i := len(hist) - 1; i >= 0; i-- {
		if !hist[i].EffectiveDate.After(asOf) {
			return hist[i].Tier
		}
	}
	return rates.TierNone
}

// History exposes the full entry sequence for a ZIP, effective date
// ascending, for audit and conflict review.
func (t *Table) History(zip string) []Entry {
	padded, err := normalizeZip(zip)
	if err != nil {
		return nil
	}
	hist := t.entries[padded]
	out := make([]Entry, len(hist))
	copy(out, hist)
	return out
}

// Export dumps every entry grouped by tier, then ZIP ascending, then
// effective date ascending, for deterministic diffs between publication
// versions and for external persistence.
func (t *Table) Export() []Entry {
	var out []Entry
	for _, hist := range t.entries {
		out = append(out, hist...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier.Rank() < out[j].Tier.Rank()
		}
		if out[i].Zip != out[j].Zip {
			return out[i].Zip < out[j].Zip
		}
		return out[i].EffectiveDate.Before(out[j].EffectiveDate)
	})
	return out
}

// Len returns the number of ZIPs with at least one entry.
func (t *Table) Len() int {
	return len(t.entries)
}

// normalizeZip validates a digits-only ZIP of up to 5 digits and
// zero-pads it.
func normalizeZip(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 5 {
		return "", fmt.Errorf("zip %q is not a 5-digit code", s)
	}
	if !allDigits(s) {
		return "", fmt.Errorf("zip %q is not numeric", s)
	}
	return fmt.Sprintf("%05s", s), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// expandZipOrRange turns a single ZIP or an inclusive "AAAAA-BBBBB" range
// into zero-padded member ZIPs.
func expandZipOrRange(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if start, end, ok := strings.Cut(s, "-"); ok {
		lo, err := rangeBound(start)
		if err != nil {
			return nil, model.NewIngestError(model.IngestMalformedRange, s, "bad range start", err)
		}
		hi, err := rangeBound(end)
		if err != nil {
			return nil, model.NewIngestError(model.IngestMalformedRange, s, "bad range end", err)
		}
		if lo > hi {
			return nil, model.NewIngestError(model.IngestMalformedRange, s, "range bounds reversed", nil)
		}
		zips := make([]string, 0, hi-lo+1)
		for z := lo; z <= hi; z++ {
			zips = append(zips, fmt.Sprintf("%05d", z))
		}
		return zips, nil
	}

	zip, err := normalizeZip(s)
	if err != nil {
		return nil, model.NewIngestError(model.IngestMalformedRange, s, "bad zip", err)
	}
	return []string{zip}, nil
}

// rangeBound parses one range bound; bounds must be exactly 5 digits.
func rangeBound(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || !allDigits(s) {
		return 0, fmt.Errorf("bound %q is not 5 digits", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bound %q is not numeric", s)
	}
	return n, nil
}
