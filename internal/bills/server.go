package bills

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombor/bill-tracker/internal/auth"
	"github.com/zombor/bill-tracker/internal/metrics"
)

// Authenticator registers and verifies users
type Authenticator interface {
	Register(ctx context.Context, username, email, displayName, password string) (*auth.Credential, error)
	Authenticate(ctx context.Context, username, password string) (*auth.Credential, error)
}

// Options tune the HTTP server
type Options struct {
	// ExtractTimeout bounds a single model call. Zero means no bound.
	ExtractTimeout time.Duration
}

// Server handles HTTP requests for the bill tracker
type Server struct {
	service       *Service
	authenticator Authenticator
	sessions      *auth.Sessions
	metrics       *metrics.Metrics
	options       Options
	pages         map[string]*template.Template
	mux           *http.ServeMux
	handler       http.Handler
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, authenticator Authenticator, sessions *auth.Sessions, m *metrics.Metrics, opts Options) *Server {
	return NewServerWithMux(service, authenticator, sessions, m, opts, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, authenticator Authenticator, sessions *auth.Sessions, m *metrics.Metrics, opts Options, mux *http.ServeMux) *Server {
	s := &Server{
		service:       service,
		authenticator: authenticator,
		sessions:      sessions,
		metrics:       m,
		options:       opts,
		pages:         mustParsePages(),
		mux:           mux,
	}
	s.registerRoutes()
	s.handler = sessions.Middleware(s.instrument(s.mux))
	return s
}

// requireAuth sends anonymous visitors to the login page
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).Authenticated {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// requireAPIAuth rejects anonymous API calls with 401
func (s *Server) requireAPIAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).Authenticated {
			writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.mux.HandleFunc("GET /static/app.css", s.handleStaticCSS)

	// Login and registration
	s.mux.HandleFunc("GET /login", s.handleLoginPage)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("GET /register", s.handleRegisterPage)
	s.mux.HandleFunc("POST /register", s.handleRegister)
	s.mux.HandleFunc("POST /logout", s.handleLogout)

	// HTML forms
	s.mux.HandleFunc("POST /bills/scan", s.requireAuth(s.handleScanBill))
	s.mux.HandleFunc("POST /bills/manual", s.requireAuth(s.handleManualEntry))
	s.mux.HandleFunc("POST /bills/delete", s.requireAuth(s.handleDeleteEntries))
	s.mux.HandleFunc("POST /bills", s.requireAuth(s.handleSaveBill))

	// JSON API
	s.mux.HandleFunc("GET /api/entries", s.requireAPIAuth(s.handleAPIListEntries))
	s.mux.HandleFunc("POST /api/entries", s.requireAPIAuth(s.handleAPICreateEntry))
	s.mux.HandleFunc("DELETE /api/entries/{id}", s.requireAPIAuth(s.handleAPIDeleteEntry))
	s.mux.HandleFunc("POST /api/scan", s.requireAPIAuth(s.handleAPIScan))
	s.mux.HandleFunc("POST /api/bills", s.requireAPIAuth(s.handleAPISaveBill))
	s.mux.HandleFunc("GET /api/summary", s.requireAPIAuth(s.handleAPISummary))

	// Dashboard
	s.mux.HandleFunc("GET /{$}", s.requireAuth(s.handleIndex))
}

// Start serves HTTP on addr until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
