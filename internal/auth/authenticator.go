package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrMissingEmail       = errors.New("email is required")
)

const (
	minPasswordLength = 8
	// bcrypt only hashes the first 72 bytes and rejects longer input
	maxPasswordLength = 72
)

// Authenticator registers users and verifies their passwords
type Authenticator struct {
	store CredentialStore
	now   func() time.Time
}

// NewAuthenticator creates an Authenticator backed by the given store
func NewAuthenticator(store CredentialStore) *Authenticator {
	return &Authenticator{
		store: store,
		now:   time.Now,
	}
}

// Register creates a new credential with a bcrypt password hash
func (a *Authenticator) Register(ctx context.Context, username, email, displayName, password string) (*Credential, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if len(password) > maxPasswordLength {
		return nil, ErrPasswordTooLong
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	cred := &Credential{
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    a.now(),
	}
	if err := a.store.Create(ctx, cred); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("saving credential: %w", err)
	}

	return cred, nil
}

// Authenticate returns the credential when the password matches. Unknown
// users and wrong passwords both yield ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*Credential, error) {
	cred, err := a.store.Get(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, ErrCredentialNotFound) {
			slog.Error("Failed to load credential", "username", username, "error", err)
		}
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return cred, nil
}
