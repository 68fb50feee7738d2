package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/auth"
	"github.com/dukerupert/fittrack/internal/model"
	"github.com/dukerupert/fittrack/internal/store"
)

// Timezones offered by the profile form. A user's current zone is always
// added when missing.
var Timezones = []string{
	"UTC",
	"America/Los_Angeles",
	"America/Denver",
	"America/Chicago",
	"America/New_York",
	"America/Sao_Paulo",
	"Europe/London",
	"Europe/Berlin",
	"Europe/Istanbul",
	"Africa/Johannesburg",
	"Asia/Dubai",
	"Asia/Kolkata",
	"Asia/Singapore",
	"Asia/Tokyo",
	"Australia/Sydney",
	"Pacific/Auckland",
}

type profileInput struct {
	Name     string
	Timezone string
}

type ProfileHandler struct {
	users         *store.UserStore
	notifications *store.NotificationStore
	data          Data
	render        *Renderer
	logger        *slog.Logger
}

func NewProfileHandler(us *store.UserStore, ns *store.NotificationStore, data Data, rd *Renderer, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{users: us, notifications: ns, data: data, render: rd, logger: logger}
}

func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	h.renderProfile(w, r, http.StatusOK, user, profileInput{Name: user.Name, Timezone: user.Timezone}, nil)
}

func (h *ProfileHandler) loadUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, err := h.users.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("load profile", "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, "Error fetching profile", "/dashboard")
		return nil, false
	}
	if user == nil {
		h.render.NotFound(w, r)
		return nil, false
	}
	return user, true
}

func (h *ProfileHandler) renderProfile(w http.ResponseWriter, r *http.Request, status int, user *model.User, in profileInput, errs apperror.ValidationErrors) {
	view := map[string]any{
		"Title":   "Profile",
		"Nav":     "profile",
		"Profile": user,
		"Input":   in,
		"Errors":  errs.Map(),
	}

	zones := Timezones
	if in.Timezone != "" && !slices.Contains(zones, in.Timezone) {
		zones = append(slices.Clone(zones), in.Timezone)
	}
	view["Timezones"] = zones

	var active, logs int
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		habits, err := h.data.habits(ctx).List(ctx, false)
		active = len(habits)
		return err
	})
	g.Go(func() error {
		n, err := h.data.Logs.Count(ctx, user.ID)
		if err != nil {
			return apperror.Remote("Error fetching logs", err)
		}
		logs = n
		return nil
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("load profile stats", "error", err)
	}
	view["ActiveCount"] = active
	view["LogCount"] = logs
	h.render.Page(w, r, status, "profile", view)
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}

	in := profileInput{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Timezone: strings.TrimSpace(r.FormValue("timezone")),
	}
	var errs apperror.ValidationErrors
	switch {
	case in.Name == "":
		errs = append(errs, apperror.FieldError{Field: "name", Message: "Name is required"})
	case utf8.RuneCountInString(in.Name) > 100:
		errs = append(errs, apperror.FieldError{Field: "name", Message: "Name must be less than 100 characters"})
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil || in.Timezone == "" {
		errs = append(errs, apperror.FieldError{Field: "timezone", Message: "Choose a valid timezone"})
	}
	if len(errs) > 0 {
		h.renderProfile(w, r, http.StatusUnprocessableEntity, user, in, errs)
		return
	}

	if _, err := h.users.UpdateProfile(r.Context(), user.ID, in.Name, in.Timezone); err != nil {
		h.logger.Error("update profile", "error", err)
		flashError(w, "Error updating profile", "Please try again.")
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	flashSuccess(w, "Profile updated")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

type export struct {
	ExportedAt time.Time        `json:"exported_at"`
	User       *model.User      `json:"user"`
	Habits     []model.Habit    `json:"habits"`
	Logs       []model.HabitLog `json:"logs"`
}

// Export downloads every habit, archived ones included, and every log as
// JSON.
func (h *ProfileHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}

	hr := h.data.habits(r.Context())
	lr := h.data.logs(r.Context())
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		_, err := hr.List(ctx, true)
		return err
	})
	g.Go(func() error {
		_, err := lr.ListAll(ctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("export", "error", err)
		flashError(w, apperror.UserMessage(err), "Export failed. Please try again.")
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	now := lr.Now()
	out := export{ExportedAt: now, User: user, Habits: hr.Habits(), Logs: lr.Logs()}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="fittrack-export-%s.json"`, now.Format("2006-01-02")))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		h.logger.Error("write export", "error", err)
	}
}

func (h *ProfileHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.notifications.List(r.Context(), auth.UserID(r.Context()))
	view := map[string]any{"Title": "Notifications", "Nav": "profile", "Preferences": prefs}
	if err != nil {
		h.logger.Error("list notification preferences", "error", err)
		view["Preferences"] = []model.NotificationPreference{}
		view["Flash"] = &Flash{Kind: "error", Title: "Error fetching preferences", Message: "Please try again."}
	}
	h.render.Page(w, r, http.StatusOK, "notifications", view)
}

// SaveNotifications stores every toggle; unchecked boxes are not posted and
// mean disabled.
func (h *ProfileHandler) SaveNotifications(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	for _, t := range model.NotificationTypes {
		if err := h.notifications.Set(r.Context(), userID, t, r.FormValue(string(t)) == "on"); err != nil {
			h.logger.Error("save notification preference", "type", t, "error", err)
			flashError(w, "Error saving preferences", "Please try again.")
			http.Redirect(w, r, "/settings/notifications", http.StatusSeeOther)
			return
		}
	}
	flashSuccess(w, "Preferences saved")
	http.Redirect(w, r, "/settings/notifications", http.StatusSeeOther)
}
