package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"blogapp/internal/models"
	"blogapp/internal/security"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "layout.html"

// Page is the data every view receives.
type Page struct {
	Title     string
	Principal *models.User
	Flashes   []security.Flash
	Form      any
	Errors    map[string]string
	Data      any
}

type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
}

// New parses the layout together with each page view.
func New(logger *zap.Logger) (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		base := path.Base(file)
		if base == layoutFile {
			continue
		}
		t, err := template.New(base).Funcs(funcs).ParseFS(templateFS, "templates/"+layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", base, err)
		}
		pages[strings.TrimSuffix(base, ".html")] = t
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes view name with the given status. The page is executed into a
// buffer first so a template failure still yields a clean 500.
func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) {
	t, ok := rd.pages[name]
	if !ok {
		rd.logger.Error("template not found", zap.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		rd.logger.Error("failed to render template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		rd.logger.Debug("failed to write response", zap.String("template", name), zap.Error(err))
	}
}
