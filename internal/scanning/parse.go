package scanning

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	totalAmountPattern = regexp.MustCompile(`Total Amount: €(\d+\.\d{2})`)
	itemPattern        = regexp.MustCompile(`^-\s*(.+?):\s*€(\d+(?:\.\d+)?)\s*\(Category:\s*([^)]*?)\s*\)\s*$`)
	datePattern        = regexp.MustCompile(`(?m)^\s*Date:\s*(\d{4}-\d{2}-\d{2})\b`)
)

// Parse runs every extraction pass over a model reply. A reply that does not
// follow the template yields zero values, never an error.
func Parse(text string) *ExtractionResult {
	return &ExtractionResult{
		RawText:     text,
		TotalAmount: ExtractAmount(text),
		Date:        ExtractDate(text),
		Items:       ExtractItems(text),
	}
}

// ExtractAmount returns the value of the first "Total Amount: €12.34" match, or 0
func ExtractAmount(text string) float64 {
	match := totalAmountPattern.FindStringSubmatch(text)
	if match == nil {
		return 0.0
	}
	amount, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0.0
	}
	return amount
}

// ExtractItems returns the "- name: €1.00 (Category: grocery)" lines in source order.
// Dash lines that don't match the template are skipped.
func ExtractItems(text string) []Item {
	items := make([]Item, 0)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "-") {
			continue
		}

		match := itemPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		amount, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}

		items = append(items, Item{
			Name:     strings.TrimSpace(match[1]),
			Amount:   amount,
			Category: match[3],
		})
	}

	return items
}

// ExtractDate returns the "Date: YYYY-MM-DD" value when it is a real calendar
// date, or an empty string
func ExtractDate(text string) string {
	match := datePattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	if _, err := time.Parse(time.DateOnly, match[1]); err != nil {
		return ""
	}
	return match[1]
}
