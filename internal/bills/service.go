package bills

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zombor/bill-tracker/internal/metrics"
	"github.com/zombor/bill-tracker/internal/scanning"
	"github.com/zombor/bill-tracker/internal/summary"
)

// Extractor reads a bill upload into an ExtractionResult
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (*scanning.ExtractionResult, error)
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// ScannedBill is an extraction result after the user reviewed it
type ScannedBill struct {
	Date        string
	Amount      float64
	Description string
	Items       []scanning.Item
}

// Overview is everything the dashboard shows for one user
type Overview struct {
	Entries []*Entry             `json:"entries"`
	Total   float64              `json:"total"`
	Monthly []summary.MonthTotal `json:"monthly"`
}

// Service handles bill operations for authenticated users
type Service struct {
	ledgers    LedgerProvider
	extractor  Extractor
	timeSource TimeSource
	metrics    *metrics.Metrics
}

// NewService creates a new Service with the default time source
func NewService(ledgers LedgerProvider, extractor Extractor, m *metrics.Metrics) *Service {
	return NewServiceWithDeps(ledgers, extractor, m, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(ledgers LedgerProvider, extractor Extractor, m *metrics.Metrics, timeSrc TimeSource) *Service {
	return &Service{
		ledgers:    ledgers,
		extractor:  extractor,
		timeSource: timeSrc,
		metrics:    m,
	}
}

// Scan extracts a bill from an upload.
//
// An unreadable upload returns an error wrapping scanning.ErrUnsupportedFormat.
// A failed model call returns an empty result with an error wrapping
// scanning.ErrExtractionFailed, so the user can still enter the bill by hand.
func (s *Service) Scan(ctx context.Context, data []byte, contentType string) (*scanning.ExtractionResult, error) {
	result, err := s.extractor.Extract(ctx, data, contentType)
	switch {
	case errors.Is(err, scanning.ErrUnsupportedFormat):
		s.metrics.ObserveExtraction(metrics.OutcomeUnsupported)
		return nil, err
	case errors.Is(err, scanning.ErrExtractionFailed):
		s.metrics.ObserveExtraction(metrics.OutcomeFailed)
		return result, err
	case err != nil:
		return nil, fmt.Errorf("extracting bill: %w", err)
	}

	if result.TotalAmount == 0 && len(result.Items) == 0 {
		s.metrics.ObserveExtraction(metrics.OutcomeNoMatch)
	} else {
		s.metrics.ObserveExtraction(metrics.OutcomeSuccess)
	}
	return result, nil
}

// SaveScanned stores a reviewed bill. Bills with items become one entry per
// item; otherwise the whole bill is a single miscellaneous entry.
func (s *Service) SaveScanned(ctx context.Context, username string, bill ScannedBill) ([]*Entry, error) {
	ledger, err := s.ledgers.For(username)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	date := s.billDate(bill.Date)

	var entries []*Entry
	if len(bill.Items) > 0 {
		for _, item := range bill.Items {
			category := strings.TrimSpace(item.Category)
			if category == "" {
				category = string(CategoryMiscellaneous)
			}
			if _, known := ParseCategory(category); !known {
				slog.Warn("Saving item with unknown category", "username", username, "category", category)
			}
			entries = append(entries, &Entry{
				Date:        date,
				Category:    category,
				Amount:      item.Amount,
				Description: item.Name,
			})
		}
	} else {
		entries = append(entries, &Entry{
			Date:        date,
			Category:    string(CategoryMiscellaneous),
			Amount:      bill.Amount,
			Description: bill.Description,
		})
	}

	for _, entry := range entries {
		if !validAmount(entry.Amount) {
			return nil, fmt.Errorf("%w: amount of %q must be a non-negative number", ErrInvalidEntry, entry.Description)
		}
	}

	for i, entry := range entries {
		if err := ledger.Insert(ctx, entry); err != nil {
			s.metrics.ObserveEntriesSaved(metrics.SourceScan, i)
			return nil, fmt.Errorf("saving entry: %w", err)
		}
	}
	s.metrics.ObserveEntriesSaved(metrics.SourceScan, len(entries))

	return entries, nil
}

// AddManual validates and stores a hand-written entry
func (s *Service) AddManual(ctx context.Context, username string, entry Entry) (*Entry, error) {
	if _, err := time.Parse(time.DateOnly, entry.Date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidEntry)
	}
	category, ok := ParseCategory(entry.Category)
	if !ok {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidEntry, entry.Category)
	}
	if !validAmount(entry.Amount) {
		return nil, fmt.Errorf("%w: amount must be a non-negative number", ErrInvalidEntry)
	}

	ledger, err := s.ledgers.For(username)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	saved := &Entry{
		Date:        entry.Date,
		Category:    string(category),
		Amount:      entry.Amount,
		Description: strings.TrimSpace(entry.Description),
	}
	if err := ledger.Insert(ctx, saved); err != nil {
		return nil, fmt.Errorf("saving entry: %w", err)
	}
	s.metrics.ObserveEntriesSaved(metrics.SourceManual, 1)

	return saved, nil
}

// ListEntries returns all entries of the user's ledger
func (s *Service) ListEntries(ctx context.Context, username string) ([]*Entry, error) {
	ledger, err := s.ledgers.For(username)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	entries, err := ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// DeleteEntries removes the given entries. IDs that don't exist are ignored.
func (s *Service) DeleteEntries(ctx context.Context, username string, ids ...int64) error {
	ledger, err := s.ledgers.For(username)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	deleted := 0
	for _, id := range ids {
		removed, err := ledger.Delete(ctx, id)
		if err != nil {
			s.metrics.ObserveEntriesDeleted(deleted)
			return fmt.Errorf("deleting entry: %w", err)
		}
		if removed {
			deleted++
		}
	}
	s.metrics.ObserveEntriesDeleted(deleted)
	return nil
}

// Overview returns the user's entries with the running total and monthly sums
func (s *Service) Overview(ctx context.Context, username string) (*Overview, error) {
	entries, err := s.ListEntries(ctx, username)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Entries: entries,
		Total:   summary.Total(entries),
		Monthly: summary.Monthly(entries),
	}, nil
}

// Today returns the current date as YYYY-MM-DD
func (s *Service) Today() string {
	return s.timeSource.Now().Format(time.DateOnly)
}

// billDate keeps a valid extracted date and falls back to today
func (s *Service) billDate(date string) string {
	if t, err := time.Parse(time.DateOnly, strings.TrimSpace(date)); err == nil {
		return t.Format(time.DateOnly)
	}
	return s.Today()
}
