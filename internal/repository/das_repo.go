package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rezonia/parcel-audit/internal/das"
	"github.com/rezonia/parcel-audit/internal/rates"
)

// DASRepo stores and reloads DAS table entries. Entries are append-only
// in the domain sense: the (zip, tier, effective_date) key makes replays
// idempotent.
type DASRepo struct {
	db *sql.DB
}

func NewDASRepo(db *sql.DB) *DASRepo {
	return &DASRepo{db: db}
}

// UpsertEntries writes an exported table dump. Re-running the same dump
// inserts nothing. Returns the number of rows actually inserted.
func (r *DASRepo) UpsertEntries(entries []das.Entry) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO das_zip_entries (zip, tier, effective_date) VALUES (?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range entries {
		e := &entries[i]
		res, err := stmt.Exec(e.Zip, string(e.Tier), e.EffectiveDate.Format("2006-01-02"))
		if err != nil {
			return inserted, fmt.Errorf("insert %s: %w", e.Zip, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// LoadEntries reads every stored entry, ordered for deterministic
// rebuilds.
func (r *DASRepo) LoadEntries() ([]das.Entry, error) {
	rows, err := r.db.Query(
		`SELECT zip, tier, effective_date FROM das_zip_entries ORDER BY zip, effective_date, tier`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []das.Entry
	for rows.Next() {
		var zip, tier, date string
		if err := rows.Scan(&zip, &tier, &date); err != nil {
			return nil, err
		}
		effective, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", zip, err)
		}
		entries = append(entries, das.Entry{
			Zip:           zip,
			Tier:          rates.Tier(tier),
			EffectiveDate: effective,
		})
	}
	return entries, rows.Err()
}

// LoadTable rebuilds a published classification table from storage.
func (r *DASRepo) LoadTable() (*das.Table, error) {
	entries, err := r.LoadEntries()
	if err != nil {
		return nil, err
	}
	builder := das.NewBuilder()
	if _, errs := builder.IngestEntries(entries); len(errs) > 0 {
		return nil, fmt.Errorf("rebuild table: %d bad stored entries, first: %v", len(errs), errs[0])
	}
	return builder.Publish(), nil
}
