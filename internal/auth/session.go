package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie carrying the signed session token
const SessionCookieName = "bill_tracker_session"

var ErrInvalidToken = errors.New("invalid or expired session token")

// Session is the per-client authentication state handed to every request handler
type Session struct {
	Authenticated bool
	Username      string
	DisplayName   string
}

type sessionContextKey struct{}

// NewContext returns a copy of ctx carrying the session
func NewContext(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// FromContext returns the session stored in ctx, or an anonymous session
func FromContext(ctx context.Context) Session {
	session, _ := ctx.Value(sessionContextKey{}).(Session)
	return session
}

// Claims are the JWT claims of a session token
type Claims struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// Sessions issues and validates session cookies
type Sessions struct {
	secretKey []byte
	ttl       time.Duration
	secure    bool
	now       func() time.Time
}

// NewSessions creates a session manager signing tokens with secretKey.
// Tokens stay valid for ttl.
func NewSessions(secretKey []byte, ttl time.Duration, secureCookie bool) *Sessions {
	return &Sessions{
		secretKey: secretKey,
		ttl:       ttl,
		secure:    secureCookie,
		now:       time.Now,
	}
}

// Generate creates a signed token for the credential
func (s *Sessions) Generate(cred *Credential) (string, error) {
	now := s.now()
	claims := &Claims{
		Username:    cred.Username,
		DisplayName: cred.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns its claims
func (s *Sessions) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issue starts a session for the credential by setting the session cookie
func (s *Sessions) Issue(w http.ResponseWriter, cred *Credential) error {
	token, err := s.Generate(cred)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.now().Add(s.ttl),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear ends the session by expiring the cookie
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Load reads the session from the request cookie. Missing or invalid cookies
// give an anonymous session.
func (s *Sessions) Load(r *http.Request) Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Session{}
	}
	claims, err := s.Validate(cookie.Value)
	if err != nil {
		return Session{}
	}
	return Session{
		Authenticated: true,
		Username:      claims.Username,
		DisplayName:   claims.DisplayName,
	}
}

// Middleware attaches the request's session to its context
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s.Load(r))))
	})
}
