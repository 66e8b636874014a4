package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rezonia/parcel-audit/internal/das"
)

// ParseChangeFeed reads a normalized DAS change feed CSV into ingest
// tuples. Expected header:
//
//	change_kind,zip_or_range,effective_date
//
// change_kind is either a tier name (DAS, DAS_EXTENDED, ...) or a
// publication section kind (ADDED_TO_CONTIGUOUS, MOVED_TO_REMOTE,
// REMOVED, ...). effective_date is YYYY-MM-DD.
func ParseChangeFeed(r io.Reader) ([]das.ChangeRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 3 {
		return nil, fmt.Errorf("expected 3 columns, got %d", len(header))
	}

	var records []das.ChangeRecord
	lineNum := 1
	for {
		lineNum++
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if len(fields) < 3 {
			continue
		}

		effective, err := time.Parse("2006-01-02", strings.TrimSpace(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("line %d date: %w", lineNum, err)
		}
		records = append(records, das.ChangeRecord{
			Kind:          strings.TrimSpace(fields[0]),
			ZipOrRange:    strings.TrimSpace(fields[1]),
			EffectiveDate: effective,
		})
	}
	return records, nil
}
