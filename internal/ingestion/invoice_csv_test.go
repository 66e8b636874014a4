package ingestion_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/parcel-audit/internal/ingestion"
	"github.com/rezonia/parcel-audit/internal/money"
	"github.com/rezonia/parcel-audit/internal/rates"
)

const invoiceHeader = "Invoice_Date,Invoice_Number,Tracking_Number,Service_Type," +
	"Origin_Zip,Dest_Zip,Zone,Actual_Weight,Billed_Weight,Length,Width,Height," +
	"Net_Charge,Residential_Surcharge,Address_Correction_Fee,Fuel_Surcharge," +
	"Peak_Surcharge,Delivery_Area_Surcharge,On_Time_Delivery\n"

func TestParseInvoiceCSV_FullRow(t *testing.T) {
	in := invoiceHeader +
		"2025-03-15,INV-001,1Z999AA10000000001,GROUND,40202,90210,5,12.0,12.0,10,8,6,23.45,5.20,0,1.40,0,5.85,true\n"

	records, rowErrs, err := ingestion.ParseInvoiceCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "1Z999AA10000000001", rec.TrackingNumber)
	assert.Equal(t, "INV-001", rec.InvoiceNumber)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), rec.InvoiceDate)
	assert.Equal(t, rates.ServiceGround, rec.Service)
	assert.Equal(t, "90210", rec.DestZip)
	assert.Equal(t, 5, rec.Zone)
	assert.True(t, rec.ActualWeight.Equal(money.MustFromString("12.0")))
	assert.True(t, rec.NetCharge.Equal(money.MustFromString("23.45")))
	assert.True(t, rec.Surcharges.Residential.Equal(money.MustFromString("5.20")))
	assert.True(t, rec.Surcharges.DeliveryArea.Equal(money.MustFromString("5.85")))
	assert.True(t, rec.OnTimeDelivery)

	// Flags derive from the billed lines
	assert.True(t, rec.ResidentialDelivery)
	assert.False(t, rec.AddressCorrected)
	assert.False(t, rec.SaturdayDelivery)
}

func TestParseInvoiceCSV_CompactDateFormat(t *testing.T) {
	in := invoiceHeader +
		"20250315,INV-001,1Z01,GROUND,40202,90210,2,5.0,5.0,10,8,6,18.00,0,0,0,0,0,true\n"

	records, rowErrs, err := ingestion.ParseInvoiceCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), records[0].InvoiceDate)
}

func TestParseInvoiceCSV_HeaderCaseInsensitive(t *testing.T) {
	in := strings.ToLower(invoiceHeader) +
		"2025-03-15,INV-001,1Z01,ground,40202,90210,2,5.0,5.0,10,8,6,18.00,0,0,0,0,0,true\n"

	records, rowErrs, err := ingestion.ParseInvoiceCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, records, 1)
	assert.Equal(t, rates.ServiceGround, records[0].Service)
}

func TestParseInvoiceCSV_BadRowsSkippedNotFatal(t *testing.T) {
	in := invoiceHeader +
		"2025-03-15,INV-001,1Z01,GROUND,40202,90210,2,5.0,5.0,10,8,6,18.00,0,0,0,0,0,true\n" +
		"not-a-date,INV-001,1Z02,GROUND,40202,90210,2,5.0,5.0,10,8,6,18.00,0,0,0,0,0,true\n" +
		"2025-03-15,INV-001,,GROUND,40202,90210,2,5.0,5.0,10,8,6,18.00,0,0,0,0,0,true\n" +
		"2025-03-15,INV-001,1Z04,GROUND,40202,90210,2,abc,5.0,10,8,6,18.00,0,0,0,0,0,true\n" +
		"2025-03-15,INV-001,1Z05,GROUND,40202,90210,2,5.0,5.0,10,8,6,18.00,0,0,0,0,0,false\n"

	records, rowErrs, err := ingestion.ParseInvoiceCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, rowErrs, 3)
	require.Len(t, records, 2)
	assert.Equal(t, "1Z01", records[0].TrackingNumber)
	assert.Equal(t, "1Z05", records[1].TrackingNumber)
}

func TestParseInvoiceCSV_MissingRequiredColumn(t *testing.T) {
	in := "Invoice_Date,Service_Type,Dest_Zip\n2025-03-15,GROUND,90210\n"

	_, _, err := ingestion.ParseInvoiceCSV(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Tracking_Number")
}

func TestParseInvoiceCSV_EmptyOptionalFieldsDefaultZero(t *testing.T) {
	in := invoiceHeader +
		"2025-03-15,,1Z01,GROUND,,90210,,5.0,5.0,10,8,6,18.00,,,,,,\n"

	records, rowErrs, err := ingestion.ParseInvoiceCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, 0, rec.Zone)
	assert.True(t, rec.Surcharges.Residential.IsZero())
	assert.False(t, rec.OnTimeDelivery)
}

func TestParseInvoiceCSV_NoOnTimeColumnDefaultsOnTime(t *testing.T) {
	// An export without delivery data must not turn every guaranteed-tier
	// shipment into a refund claim.
	in := "Invoice_Date,Tracking_Number,Service_Type,Dest_Zip,Zone," +
		"Actual_Weight,Billed_Weight,Length,Width,Height,Net_Charge\n" +
		"2025-03-15,1Z01,NEXT_DAY_AIR,90210,5,12.0,12.0,12,10,10,85.00\n"

	records, rowErrs, err := ingestion.ParseInvoiceCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, records, 1)
	assert.True(t, records[0].OnTimeDelivery)
}

func TestParseChangeFeed(t *testing.T) {
	in := "change_kind,zip_or_range,effective_date\n" +
		"DAS,65244,2025-01-06\n" +
		"MOVED_TO_EXTENDED,30540-30549,2025-01-06\n" +
		"REMOVED,12538,2025-01-06\n"

	records, err := ingestion.ParseChangeFeed(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "DAS", records[0].Kind)
	assert.Equal(t, "65244", records[0].ZipOrRange)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), records[0].EffectiveDate)
	assert.Equal(t, "30540-30549", records[1].ZipOrRange)
	assert.Equal(t, "REMOVED", records[2].Kind)
}

func TestParseChangeFeed_BadDate(t *testing.T) {
	in := "change_kind,zip_or_range,effective_date\nDAS,65244,January 6\n"

	_, err := ingestion.ParseChangeFeed(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
