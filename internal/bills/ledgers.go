package bills

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zombor/bill-tracker/internal/auth"
)

// LedgerProvider hands out the ledger belonging to a username
type LedgerProvider interface {
	For(username string) (Ledger, error)
}

// Ledgers keeps one SQLite file per user under a data directory. Separate
// files are the only isolation between users.
type Ledgers struct {
	dir  string
	open func(path string) (Ledger, error)

	mu      sync.Mutex
	ledgers map[string]Ledger
}

// NewLedgers creates the data directory if needed
func NewLedgers(dir string) (*Ledgers, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Ledgers{
		dir: dir,
		open: func(path string) (Ledger, error) {
			return NewSQLiteLedger(path)
		},
		ledgers: make(map[string]Ledger),
	}, nil
}

// Path returns the ledger file used for username
func (l *Ledgers) Path(username string) string {
	return filepath.Join(l.dir, fmt.Sprintf("bills_%s.db", username))
}

// For returns the user's ledger, opening it on first use
func (l *Ledgers) For(username string) (Ledger, error) {
	if err := auth.ValidateUsername(username); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if ledger, ok := l.ledgers[username]; ok {
		return ledger, nil
	}

	ledger, err := l.open(l.Path(username))
	if err != nil {
		return nil, fmt.Errorf("opening ledger for %s: %w", username, err)
	}
	l.ledgers[username] = ledger
	return ledger, nil
}

// Close closes every open ledger
func (l *Ledgers) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for username, ledger := range l.ledgers {
		if err := ledger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing ledger for %s: %w", username, err))
		}
		delete(l.ledgers, username)
	}
	return errors.Join(errs...)
}
