package bills

import (
	"errors"
	"math"
	"strings"
)

// Category is one of the fixed spending categories offered for manual entries
type Category string

const (
	CategoryGrocery       Category = "grocery"
	CategoryUtensil       Category = "utensil"
	CategoryClothing      Category = "clothing"
	CategoryMiscellaneous Category = "miscellaneous"
)

// Categories lists the selectable categories in display order
var Categories = []Category{
	CategoryGrocery,
	CategoryUtensil,
	CategoryClothing,
	CategoryMiscellaneous,
}

// ErrInvalidEntry is returned when a manual entry fails validation
var ErrInvalidEntry = errors.New("invalid entry")

// validAmount reports whether v is a finite, non-negative currency amount
func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ParseCategory matches s against the fixed category set, ignoring case
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Entry is one line of a user's ledger. Entries are never updated in place;
// corrections are a delete followed by a new insert.
type Entry struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// BillDate implements summary.Record
func (e *Entry) BillDate() string { return e.Date }

// BillAmount implements summary.Record
func (e *Entry) BillAmount() float64 { return e.Amount }
