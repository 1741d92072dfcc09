// Package summary computes totals over ledger entries.
package summary

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Record is anything with a bill date and an amount
type Record interface {
	BillDate() string
	BillAmount() float64
}

// MonthTotal is the sum of all amounts in one calendar month
type MonthTotal struct {
	Month string  `json:"month"` // YYYY-MM
	Total float64 `json:"total"`
}

// dateLayouts are the date forms accepted when grouping by month
var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006/01/02",
}

// Total returns the sum of all amounts, rounded to cents
func Total[R Record](records []R) float64 {
	var total float64
	for _, r := range records {
		total += r.BillAmount()
	}
	return roundCents(total)
}

// Monthly groups records by the year and month of their date and returns the
// sums, newest month first. Records whose date can't be parsed are skipped.
func Monthly[R Record](records []R) []MonthTotal {
	sums := make(map[string]float64)
	for _, r := range records {
		month, ok := monthOf(r.BillDate())
		if !ok {
			continue
		}
		sums[month] += r.BillAmount()
	}

	months := make([]MonthTotal, 0, len(sums))
	for month, total := range sums {
		months = append(months, MonthTotal{Month: month, Total: roundCents(total)})
	}
	// YYYY-MM sorts lexically in date order
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month > months[j].Month
	})
	return months
}

func monthOf(date string) (string, bool) {
	date = strings.TrimSpace(date)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("2006-01"), true
		}
	}
	return "", false
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
