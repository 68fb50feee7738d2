package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/dukerupert/fittrack/internal/auth"
	"github.com/dukerupert/fittrack/internal/model"
	"github.com/dukerupert/fittrack/internal/recurrence"
	"github.com/dukerupert/fittrack/web"
)

var pages = []string{
	"landing",
	"login",
	"register",
	"dashboard",
	"habits",
	"habit_new",
	"habit_detail",
	"habit_delete",
	"analytics",
	"profile",
	"notifications",
	"not_found",
	"error",
}

var funcs = template.FuncMap{
	"describe":     recurrence.Describe,
	"weekdayLabel": recurrence.WeekdayLabel,
	"weekdays":     func() []int { return []int{0, 1, 2, 3, 4, 5, 6} },
	"containsInt":  slices.Contains[[]int, int],
	"initials": func(name string) string {
		return model.User{Name: name}.Initials()
	},
	"localTime": func(t time.Time, loc *time.Location, layout string) string {
		if loc == nil {
			loc = time.UTC
		}
		return t.In(loc).Format(layout)
	},
}

// Renderer holds one template set per page: the shared layout and partials
// plus the page's own "content" block.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages)), logger: logger}
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(web.Templates,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Page writes the named page with status. data is merged over the layout
// defaults; a "Flash" entry suppresses the cookie flash.
func (rd *Renderer) Page(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	t, ok := rd.pages[name]
	if !ok {
		rd.logger.Error("unknown page", "page", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	view := map[string]any{
		"Title":   "FitTrack",
		"User":    (*auth.AuthContext)(nil),
		"Nav":     "",
		"HideNav": false,
		"Errors":  map[string]string{},
	}
	if ac, ok := auth.FromContext(r.Context()); ok {
		view["User"] = &ac
	}
	for k, v := range data {
		view[k] = v
	}
	if _, ok := data["Flash"]; !ok {
		view["Flash"] = popFlash(w, r)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", view); err != nil {
		rd.logger.Error("render page", "page", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// NotFound renders the 404 page.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.Page(w, r, http.StatusNotFound, "not_found", map[string]any{
		"Title":   "Not found",
		"HideNav": true,
	})
}

// Error renders the generic error page with a link back to where the user
// came from.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, status int, message, back string) {
	if back == "" {
		back = "/dashboard"
	}
	rd.Page(w, r, status, "error", map[string]any{
		"Title":   "Error",
		"Message": message,
		"Back":    back,
	})
}
