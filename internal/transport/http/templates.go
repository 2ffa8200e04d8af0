package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/joshdurbin/goshort/internal/domain"
	"github.com/joshdurbin/goshort/internal/session"
	"github.com/joshdurbin/goshort/internal/viewmodel"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"landing", "login", "register", "dashboard", "loading"}

// pageData is what every page template receives
type pageData struct {
	Title   string
	User    *domain.Identity
	Notices []viewmodel.Notice
	Page    any
}

// renderer executes the layout with one page's content block
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	funcs := template.FuncMap{
		"dashboardPath": session.DashboardPath,
	}

	r := &renderer{pages: make(map[string]*template.Template)}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// render buffers the page so a template failure still yields a clean 500
func (r *renderer) render(w http.ResponseWriter, status int, name string, data pageData) {
	t, ok := r.pages[name]
	if !ok {
		log.Printf("[ERROR] Unknown template %q", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("[ERROR] Failed to render %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}
