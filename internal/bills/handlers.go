package bills

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/bill-tracker/internal/auth"
	"github.com/zombor/bill-tracker/internal/scanning"
)

// maxUploadSize allows high-resolution phone photos
const maxUploadSize = int64(50 << 20) // 50MB

var notices = map[string]string{
	"saved":      "Bill saved successfully!",
	"manual":     "Manual entry saved successfully!",
	"deleted":    "Items deleted successfully!",
	"registered": "User registered successfully. Please log in.",
}

// uploadError is a client-facing upload problem
type uploadError struct {
	message string
	status  int
}

func (e *uploadError) Error() string { return e.message }

// readUpload reads the "file" field of a multipart form
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return nil, "", &uploadError{"File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusRequestEntityTooLarge}
		}
		return nil, "", &uploadError{"Error parsing form", http.StatusBadRequest}
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", &uploadError{"No file was selected. Please choose a file to upload.", http.StatusBadRequest}
		}
		return nil, "", &uploadError{"No file provided", http.StatusBadRequest}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		return nil, "", &uploadError{"Error reading file. Please try again.", http.StatusInternalServerError}
	}

	return data, detectContentType(header), nil
}

// detectContentType prefers the declared type and falls back to the extension
func detectContentType(header *multipart.FileHeader) string {
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// scanContext bounds the model call by the configured timeout
func (s *Server) scanContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.options.ExtractTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.options.ExtractTimeout)
}

// parseAmount accepts a dot or comma decimal separator
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("amount %q is not a number", s)
	}
	return v, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleIndex renders the dashboard
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, pageData{Notice: notices[r.URL.Query().Get("msg")]})
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	session := auth.FromContext(r.Context())
	overview, err := s.service.Overview(r.Context(), session.Username)
	if err != nil {
		slog.Error("Error loading overview", "username", session.Username, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	data.Overview = overview
	data.Today = s.service.Today()
	s.render(w, r, status, "index.html", data)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()).Authenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data := pageData{Notice: notices[r.URL.Query().Get("msg")]}
	if data.Notice == "" {
		data.Warning = "Please enter your username and password"
	}
	s.render(w, r, http.StatusOK, "login.html", data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	cred, err := s.authenticator.Authenticate(r.Context(), username, password)
	if err != nil {
		s.render(w, r, http.StatusUnauthorized, "login.html", pageData{
			Error:    "Username/password is incorrect",
			Username: username,
		})
		return
	}

	if err := s.sessions.Issue(w, cred); err != nil {
		slog.Error("Error issuing session", "username", username, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Info("User logged in", "username", cred.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()).Authenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "register.html", pageData{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	fail := func(status int, message string) {
		s.render(w, r, status, "register.html", pageData{Error: message, Username: username, Email: email})
	}

	if password != r.PostFormValue("password_confirm") {
		fail(http.StatusBadRequest, "Passwords do not match")
		return
	}

	_, err := s.authenticator.Register(r.Context(), username, email, r.PostFormValue("display_name"), password)
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		fail(http.StatusConflict, "Username already taken")
		return
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong), errors.Is(err, auth.ErrMissingEmail):
		fail(http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("Error registering user", "username", username, "error", err)
		fail(http.StatusInternalServerError, "Registration failed. Please try again.")
		return
	}

	slog.Info("User registered", "username", username)
	http.Redirect(w, r, "/login?msg=registered", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleScanBill uploads a bill, extracts it and shows the review form
func (s *Server) handleScanBill(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := readUpload(w, r)
	if err != nil {
		var upErr *uploadError
		errors.As(err, &upErr)
		s.renderIndex(w, r, upErr.status, pageData{Error: upErr.message})
		return
	}

	ctx, cancel := s.scanContext(r)
	defer cancel()

	result, err := s.service.Scan(ctx, data, contentType)
	switch {
	case errors.Is(err, scanning.ErrUnsupportedFormat):
		s.renderIndex(w, r, http.StatusBadRequest, pageData{Error: "Error processing image: " + err.Error()})
		return
	case errors.Is(err, scanning.ErrExtractionFailed):
		s.render(w, r, http.StatusOK, "review.html", pageData{
			Warning: "Error processing bill: " + err.Error() + ". You can still enter the bill by hand.",
			Result:  result,
			Today:   s.service.Today(),
		})
		return
	case err != nil:
		slog.Error("Error scanning bill", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, http.StatusOK, "review.html", pageData{
		Result: result,
		Today:  s.service.Today(),
	})
}

// handleSaveBill stores a reviewed bill
func (s *Server) handleSaveBill(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	amount, err := parseAmount(r.PostForm.Get("amount"))
	if err != nil {
		s.renderIndex(w, r, http.StatusBadRequest, pageData{Error: "Amount must be a number"})
		return
	}

	bill := ScannedBill{
		Date:        r.PostForm.Get("date"),
		Amount:      amount,
		Description: r.PostForm.Get("description"),
	}

	if r.PostForm.Get("save_items") != "" {
		names := r.PostForm["item_name"]
		amounts := r.PostForm["item_amount"]
		categories := r.PostForm["item_category"]
		if len(amounts) != len(names) || len(categories) != len(names) {
			s.renderIndex(w, r, http.StatusBadRequest, pageData{Error: "Item fields are incomplete"})
			return
		}
		for i := range names {
			itemAmount, err := parseAmount(amounts[i])
			if err != nil {
				s.renderIndex(w, r, http.StatusBadRequest, pageData{Error: "Item amounts must be numbers"})
				return
			}
			bill.Items = append(bill.Items, scanning.Item{
				Name:     strings.TrimSpace(names[i]),
				Amount:   itemAmount,
				Category: categories[i],
			})
		}
	}

	session := auth.FromContext(r.Context())
	_, err = s.service.SaveScanned(r.Context(), session.Username, bill)
	if errors.Is(err, ErrInvalidEntry) {
		s.renderIndex(w, r, http.StatusBadRequest, pageData{Error: err.Error()})
		return
	}
	if err != nil {
		slog.Error("Error saving bill", "username", session.Username, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/?msg=saved", http.StatusSeeOther)
}

// handleManualEntry stores a hand-written entry
func (s *Server) handleManualEntry(w http.ResponseWriter, r *http.Request) {
	amount, err := parseAmount(r.PostFormValue("amount"))
	if err != nil {
		s.renderIndex(w, r, http.StatusBadRequest, pageData{Error: "Amount must be a number"})
		return
	}

	session := auth.FromContext(r.Context())
	_, err = s.service.AddManual(r.Context(), session.Username, Entry{
		Date:        r.PostFormValue("date"),
		Category:    r.PostFormValue("category"),
		Amount:      amount,
		Description: r.PostFormValue("description"),
	})
	if errors.Is(err, ErrInvalidEntry) {
		s.renderIndex(w, r, http.StatusBadRequest, pageData{Error: err.Error()})
		return
	}
	if err != nil {
		slog.Error("Error saving manual entry", "username", session.Username, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/?msg=manual", http.StatusSeeOther)
}

// handleDeleteEntries deletes every checked entry
func (s *Server) handleDeleteEntries(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	ids := make([]int64, 0, len(r.PostForm["id"]))
	for _, raw := range r.PostForm["id"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.renderIndex(w, r, http.StatusBadRequest, pageData{Error: "Invalid entry id"})
			return
		}
		ids = append(ids, id)
	}

	session := auth.FromContext(r.Context())
	if err := s.service.DeleteEntries(r.Context(), session.Username, ids...); err != nil {
		slog.Error("Error deleting entries", "username", session.Username, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/?msg=deleted", http.StatusSeeOther)
}
