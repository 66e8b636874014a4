// Generates deterministic sample data for exercising the auditor: an
// invoice CSV seeded with intentional billing errors and a matching DAS
// change feed. Run from the repo root:
//
//	go run ./testdata/generate
package main

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

const numRecords = 200

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	if err := writeInvoiceCSV(filepath.Join(baseDir, "sample_invoice.csv"), rng); err != nil {
		fmt.Fprintf(os.Stderr, "generate invoice: %v\n", err)
		os.Exit(1)
	}
	if err := writeChangeFeed(filepath.Join(baseDir, "sample_das_feed.csv")); err != nil {
		fmt.Fprintf(os.Stderr, "generate feed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote sample_invoice.csv and sample_das_feed.csv")
}

var services = []struct {
	name     string
	base     float64
	expected int
	weight   float64
}{
	{"GROUND", 15, 4, 0.5},
	{"NEXT_DAY_AIR", 85, 1, 0.2},
	{"2ND_DAY_AIR", 45, 2, 0.2},
	{"3_DAY_SELECT", 25, 3, 0.1},
}

// dasZips appear in the generated feed; shipments routed there should be
// billed the matching tier fee, and some deliberately are not.
var dasZips = []string{"83716", "65244", "98223", "96088", "28726"}

func pickService(rng *rand.Rand) int {
	roll := rng.Float64()
	acc := 0.0
	for i, s := range services {
		acc += s.weight
		if roll < acc {
			return i
		}
	}
	return 0
}

func writeInvoiceCSV(path string, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"Invoice_Date", "Invoice_Number", "Account_Number", "Tracking_Number",
		"Service_Type", "Origin_Zip", "Dest_Zip", "Zone",
		"Actual_Weight", "Billed_Weight", "Length", "Width", "Height",
		"Published_Charge", "Net_Charge",
		"Residential_Surcharge", "Address_Correction_Fee", "Fuel_Surcharge",
		"Peak_Surcharge", "Large_Package_Surcharge", "Saturday_Delivery_Fee",
		"Delivery_Area_Surcharge", "On_Time_Delivery", "Days_In_Transit",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < numRecords; i++ {
		invoiceDate := start.AddDate(0, 0, rng.Intn(60))
		svc := services[pickService(rng)]

		length := 6 + rng.Float64()*42
		width := 6 + rng.Float64()*30
		height := 6 + rng.Float64()*30
		actual := 0.5 + rng.Float64()*80
		dim := length * width * height / 139

		billed := maxf(actual, dim)
		// 20% of packages carry an inflated billed weight.
		if rng.Float64() < 0.2 {
			billed *= 1.5 + rng.Float64()
		}

		published := svc.base + billed*(0.5+rng.Float64()*2)

		residential := 0.0
		if rng.Float64() < 0.3 {
			residential = 5.20
		}
		addrFee := 0.0
		if rng.Float64() < 0.05 {
			addrFee = 18.00
		}
		fuel := published * 0.065
		peak := 0.0
		month := invoiceDate.Month()
		if month == time.November || month == time.December || month == time.January {
			peak = 5.95
		} else if rng.Float64() < 0.03 {
			// Off-season peak lines the audit should flag.
			peak = 5.95
		}
		largePkg := 0.0
		if length+2*(width+height) > 96 {
			largePkg = 95.00
		}
		saturday := 0.0
		if rng.Float64() < 0.1 {
			saturday = 16.00
		}

		destZip := fmt.Sprintf("%05d", 10001+rng.Intn(89000))
		dasFee := 0.0
		if rng.Float64() < 0.15 {
			destZip = dasZips[rng.Intn(len(dasZips))]
			// Half of the DAS-zone shipments are billed the wrong fee.
			if rng.Float64() < 0.5 {
				dasFee = 5.85
			}
		}

		net := published + residential + addrFee + fuel + peak + largePkg + saturday + dasFee

		onTime := "1"
		transit := svc.expected
		if rng.Float64() < 0.15 {
			onTime = "0"
			transit += 1 + rng.Intn(2)
		}

		tracking := fmt.Sprintf("1Z999AA1%09d", rng.Intn(1_000_000_000))

		row := []string{
			invoiceDate.Format("2006-01-02"),
			fmt.Sprintf("INV%08d", 10000000+i),
			"123456789",
			tracking,
			svc.name,
			"10001",
			destZip,
			fmt.Sprintf("%d", 2+rng.Intn(7)),
			f1(actual), f1(billed), f1(length), f1(width), f1(height),
			f2(published), f2(net),
			f2(residential), f2(addrFee), f2(fuel),
			f2(peak), f2(largePkg), f2(saturday), f2(dasFee),
			onTime, fmt.Sprintf("%d", transit),
		}
		if err := w.Write(row); err != nil {
			return err
		}
		// 2% of tracking numbers get billed twice.
		if rng.Float64() < 0.02 {
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeChangeFeed(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	rows := [][]string{
		{"change_kind", "zip_or_range", "effective_date"},
		{"DAS", "65244", "2025-01-06"},
		{"DAS", "98223", "2025-01-06"},
		{"DAS_EXTENDED", "83716", "2025-01-06"},
		{"DAS_EXTENDED", "96088", "2025-01-06"},
		{"DAS_REMOTE", "28726", "2025-01-06"},
		{"MOVED_TO_EXTENDED", "98580", "2025-01-06"},
		{"ADDED_TO_CONTIGUOUS", "30540-30549", "2025-01-06"},
		{"REMOVED", "12538", "2025-01-06"},
	}
	return w.WriteAll(rows)
}

func findTestdataDir() string {
	if _, err := os.Stat("testdata"); err == nil {
		return "testdata"
	}
	return "."
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func f1(v float64) string { return fmt.Sprintf("%.1f", v) }
func f2(v float64) string { return fmt.Sprintf("%.2f", v) }
