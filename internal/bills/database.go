package bills

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

const schema = `
CREATE TABLE IF NOT EXISTS bills (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT,
    category TEXT,
    amount REAL,
    description TEXT
);
`

// Ledger defines the storage operations on one user's bill entries
type Ledger interface {
	// Insert appends an entry and sets its ID
	Insert(ctx context.Context, entry *Entry) error

	// List returns all entries in insertion order
	List(ctx context.Context) ([]*Entry, error)

	// Delete removes the entry with the given ID and reports whether it existed.
	// Deleting a missing ID is a no-op.
	Delete(ctx context.Context, id int64) (bool, error)

	// Close closes the database connection
	Close() error
}

// Ensure SQLiteLedger implements Ledger
var _ Ledger = (*SQLiteLedger)(nil)

// SQLiteLedger implements Ledger on a single SQLite file
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens the ledger file at path, creating the table if needed
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bills table: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

// Insert appends an entry to the ledger
func (l *SQLiteLedger) Insert(ctx context.Context, entry *Entry) error {
	res, err := l.db.ExecContext(ctx,
		"INSERT INTO bills (date, category, amount, description) VALUES (?, ?, ?, ?)",
		entry.Date, entry.Category, entry.Amount, entry.Description,
	)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// List returns every entry ordered by id
func (l *SQLiteLedger) List(ctx context.Context) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, COALESCE(date, ''), COALESCE(category, ''), COALESCE(amount, 0), COALESCE(description, '')
		FROM bills
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.Date, &entry.Category, &entry.Amount, &entry.Description); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	return entries, nil
}

// Delete removes an entry by id
func (l *SQLiteLedger) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := l.db.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting entry %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading deleted rows: %w", err)
	}
	return n > 0, nil
}

// Close closes the database connection
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
