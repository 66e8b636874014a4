// Package ingestion converts external tabular inputs into the typed
// records the core operates on: carrier invoice CSV rows into
// ShipmentRecords and normalized DAS change feeds into ingest tuples.
// Validation happens here, at the boundary, not at computation sites.
package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/parcel-audit/internal/model"
	"github.com/rezonia/parcel-audit/internal/money"
	"github.com/rezonia/parcel-audit/internal/rates"
)

// Invoice CSV column names (the analyzer export layout). Column order is
// not significant; the header row decides positions.
const (
	colInvoiceDate        = "Invoice_Date"
	colInvoiceNumber      = "Invoice_Number"
	colAccountNumber      = "Account_Number"
	colTrackingNumber     = "Tracking_Number"
	colServiceType        = "Service_Type"
	colOriginZip          = "Origin_Zip"
	colOriginCountry      = "Origin_Country"
	colDestZip            = "Dest_Zip"
	colDestCountry        = "Dest_Country"
	colZone               = "Zone"
	colActualWeight       = "Actual_Weight"
	colBilledWeight       = "Billed_Weight"
	colLength             = "Length"
	colWidth              = "Width"
	colHeight             = "Height"
	colPublishedCharge    = "Published_Charge"
	colNetCharge          = "Net_Charge"
	colResidentialSurch   = "Residential_Surcharge"
	colAddressCorrection  = "Address_Correction_Fee"
	colFuelSurcharge      = "Fuel_Surcharge"
	colPeakSurcharge      = "Peak_Surcharge"
	colLargePackageSurch  = "Large_Package_Surcharge"
	colAdditionalHandling = "Additional_Handling"
	colSaturdayFee        = "Saturday_Delivery_Fee"
	colDeliveryAreaSurch  = "Delivery_Area_Surcharge"
	colOnTimeDelivery     = "On_Time_Delivery"
	colDaysInTransit      = "Days_In_Transit"
	colExpectedTransit    = "Expected_Transit_Days"
)

var requiredColumns = []string{
	colInvoiceDate, colTrackingNumber, colServiceType,
	colDestZip, colActualWeight, colBilledWeight,
	colLength, colWidth, colHeight, colNetCharge,
}

// row indexes columns by header name, case-insensitively.
type row struct {
	index  map[string]int
	fields []string
}

func (r row) has(name string) bool {
	_, ok := r.index[strings.ToLower(name)]
	return ok
}

func (r row) get(name string) string {
	i, ok := r.index[strings.ToLower(name)]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r row) decimal(name string) (decimal.Decimal, error) {
	s := r.get(name)
	if s == "" {
		return money.Zero, nil
	}
	d, err := money.FromString(s)
	if err != nil {
		return money.Zero, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func (r row) intval(name string) (int, error) {
	s := r.get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

func (r row) boolval(name string) bool {
	switch strings.ToLower(r.get(name)) {
	case "1", "true", "y", "yes":
		return true
	}
	return false
}

// ParseInvoiceCSV reads invoice rows into ShipmentRecords. A bad row is
// collected as an error and skipped; it never aborts the rest of the
// file, so the audit can still report on everything parseable.
func ParseInvoiceCSV(r io.Reader) ([]model.ShipmentRecord, []error, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[strings.ToLower(name)]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var records []model.ShipmentRecord
	var rowErrs []error
	lineNum := 1
	for {
		lineNum++
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		rec, err := parseShipmentRow(row{index: index, fields: fields})
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

func parseShipmentRow(r row) (model.ShipmentRecord, error) {
	var rec model.ShipmentRecord

	dateStr := r.get(colInvoiceDate)
	invoiceDate, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		invoiceDate, err = time.Parse("20060102", dateStr)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", colInvoiceDate, err)
		}
	}

	svc := rates.ServiceType(strings.ToUpper(r.get(colServiceType)))

	var parseErr error
	dec := func(name string) decimal.Decimal {
		d, err := r.decimal(name)
		if err != nil && parseErr == nil {
			parseErr = err
		}
		return d
	}

	zone, err := r.intval(colZone)
	if err != nil {
		return rec, err
	}
	transit, err := r.intval(colDaysInTransit)
	if err != nil {
		return rec, err
	}
	expectedTransit, err := r.intval(colExpectedTransit)
	if err != nil {
		return rec, err
	}

	rec = model.ShipmentRecord{
		TrackingNumber: r.get(colTrackingNumber),
		InvoiceNumber:  r.get(colInvoiceNumber),
		AccountNumber:  r.get(colAccountNumber),
		InvoiceDate:    invoiceDate,
		Service:        svc,
		OriginZip:      r.get(colOriginZip),
		DestZip:        r.get(colDestZip),
		OriginCountry:  r.get(colOriginCountry),
		DestCountry:    r.get(colDestCountry),
		Zone:           zone,

		Length:       dec(colLength),
		Width:        dec(colWidth),
		Height:       dec(colHeight),
		ActualWeight: dec(colActualWeight),
		BilledWeight: dec(colBilledWeight),

		PublishedCharge: dec(colPublishedCharge),
		NetCharge:       dec(colNetCharge),
		Surcharges: model.SurchargeLines{
			Residential:        dec(colResidentialSurch),
			AddressCorrection:  dec(colAddressCorrection),
			Fuel:               dec(colFuelSurcharge),
			PeakSeason:         dec(colPeakSurcharge),
			LargePackage:       dec(colLargePackageSurch),
			AdditionalHandling: dec(colAdditionalHandling),
			SaturdayDelivery:   dec(colSaturdayFee),
			DeliveryArea:       dec(colDeliveryAreaSurch),
		},

		ExpectedTransitDays: expectedTransit,
		ActualTransitDays:   transit,
		// Without delivery data every shipment counts as on time; the
		// late-delivery rule only applies when the export includes it.
		OnTimeDelivery: !r.has(colOnTimeDelivery) || r.boolval(colOnTimeDelivery),
	}
	if parseErr != nil {
		return rec, parseErr
	}

	// Flags derive from the billed lines when no explicit flag column
	// exists in the export.
	rec.ResidentialDelivery = money.IsPositive(rec.Surcharges.Residential)
	rec.AddressCorrected = money.IsPositive(rec.Surcharges.AddressCorrection)
	rec.SaturdayDelivery = money.IsPositive(rec.Surcharges.SaturdayDelivery)

	if rec.TrackingNumber == "" {
		return rec, fmt.Errorf("%s: empty", colTrackingNumber)
	}
	return rec, nil
}
