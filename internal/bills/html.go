package bills

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/zombor/bill-tracker/internal/auth"
	"github.com/zombor/bill-tracker/internal/scanning"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/app.css
var appCSS []byte

var pageNames = []string{"index.html", "review.html", "login.html", "register.html"}

var templateFuncs = template.FuncMap{
	"money": func(v float64) string {
		return fmt.Sprintf("€%.2f", v)
	},
	"amount": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
}

// pageData is the model handed to every page template
type pageData struct {
	Session    auth.Session
	Error      string
	Warning    string
	Notice     string
	Today      string
	Categories []Category
	Overview   *Overview
	Result     *scanning.ExtractionResult
	Username   string
	Email      string
}

// mustParsePages parses each page together with the shared layout
func mustParsePages() map[string]*template.Template {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		pages[name] = template.Must(
			template.New(name).Funcs(templateFuncs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name),
		)
	}
	return pages
}

// render executes a page into a buffer first so template errors become a 500
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	data.Session = auth.FromContext(r.Context())
	data.Categories = Categories

	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("Error rendering page", "page", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
