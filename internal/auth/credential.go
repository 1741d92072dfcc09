// Package auth holds registered users and the sessions issued to them.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.etcd.io/bbolt"
)

const credentialBucketName = "credentials"

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrInvalidUsername    = errors.New("username must be 1-64 letters, digits, '.', '_' or '-'")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ValidateUsername rejects usernames that are unsafe to use as a ledger file name
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) || username == "." || username == ".." {
		return ErrInvalidUsername
	}
	return nil
}

// Credential is a registered user
type Credential struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// CredentialStore defines the persistence operations for credentials
type CredentialStore interface {
	// Create saves a new credential, failing with ErrUsernameTaken on a duplicate
	Create(ctx context.Context, cred *Credential) error

	// Get returns the credential for a username or ErrCredentialNotFound
	Get(ctx context.Context, username string) (*Credential, error)

	// Close closes the underlying database
	Close() error
}

// BoltCredentialStore implements CredentialStore using BoltDB
type BoltCredentialStore struct {
	db *bbolt.DB
}

// NewBoltCredentialStore opens (or creates) the credential database at path
func NewBoltCredentialStore(path string) (*BoltCredentialStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(credentialBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltCredentialStore{db: db}, nil
}

// Create saves a credential unless the username is already taken. The check
// and the write happen in one transaction.
func (b *BoltCredentialStore) Create(ctx context.Context, cred *Credential) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(credentialBucketName))
		key := []byte(cred.Username)
		if bucket.Get(key) != nil {
			return ErrUsernameTaken
		}
		data, err := json.Marshal(cred)
		if err != nil {
			return fmt.Errorf("marshaling credential: %w", err)
		}
		return bucket.Put(key, data)
	})
}

// Get retrieves a credential by username
func (b *BoltCredentialStore) Get(ctx context.Context, username string) (*Credential, error) {
	var cred *Credential
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(credentialBucketName))
		data := bucket.Get([]byte(username))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrCredentialNotFound, username)
		}
		return json.Unmarshal(data, &cred)
	})
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// Close closes the database connection
func (b *BoltCredentialStore) Close() error {
	return b.db.Close()
}
