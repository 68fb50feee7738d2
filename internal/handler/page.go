package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/auth"
	"github.com/dukerupert/fittrack/internal/dashboard"
	"github.com/dukerupert/fittrack/internal/habit"
	"github.com/dukerupert/fittrack/internal/habitlog"
	"github.com/dukerupert/fittrack/internal/model"
	"github.com/dukerupert/fittrack/internal/recurrence"
)

// PageHandler serves the signed-in HTML pages for habits and completions.
type PageHandler struct {
	data    Data
	render  *Renderer
	actions *ActionTracker
	logger  *slog.Logger
}

func NewPageHandler(data Data, rd *Renderer, actions *ActionTracker, logger *slog.Logger) *PageHandler {
	return &PageHandler{data: data, render: rd, actions: actions, logger: logger}
}

// fail turns a repository error into a response. Remote failures become a
// flash on the back page; missing rows render the 404 page.
func (h *PageHandler) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	var ve apperror.ValidationErrors
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		h.render.NotFound(w, r)
	case errors.As(err, &ve):
		flashError(w, "Please fix the form", apperror.UserMessage(err))
		http.Redirect(w, r, back, http.StatusSeeOther)
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		flashError(w, apperror.UserMessage(err), "Please try again.")
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

// begin claims the action key, answering 409 when it is already running.
func (h *PageHandler) begin(w http.ResponseWriter, r *http.Request, action, id, back string) (string, bool) {
	key := ActionKey(auth.UserID(r.Context()), action, id)
	if err := h.actions.Begin(key); err != nil {
		h.render.Error(w, r, http.StatusConflict, "This action is already in progress.", back)
		return "", false
	}
	return key, true
}

func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	hr := h.data.habits(r.Context())
	lr := h.data.logs(r.Context())

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		_, err := hr.List(ctx, false)
		return err
	})
	g.Go(func() error {
		_, err := lr.ListToday(ctx)
		return err
	})

	view := map[string]any{"Title": "Today", "Nav": "dashboard"}
	if err := g.Wait(); err != nil {
		h.logger.Error("load dashboard", "error", err)
		view["Flash"] = &Flash{Kind: "error", Title: apperror.UserMessage(err), Message: "Please try again."}
	}
	view["Summary"] = dashboard.Build(hr.Habits(), lr.TodayLogs(), lr.Now())
	h.render.Page(w, r, http.StatusOK, "dashboard", view)
}

// Complete logs one completion for now.
func (h *PageHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := nextPath(r, "/dashboard")
	key, ok := h.begin(w, r, "log", id, back)
	if !ok {
		return
	}
	defer h.actions.Finish(key)

	if _, err := h.data.logs(r.Context()).LogCompletion(r.Context(), id, "", time.Time{}); err != nil {
		h.fail(w, r, err, back)
		return
	}
	flashSuccess(w, "Habit logged!")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *PageHandler) Undo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	back := nextPath(r, "/dashboard")
	key, ok := h.begin(w, r, "undo", id, back)
	if !ok {
		return
	}
	defer h.actions.Finish(key)

	if err := h.data.logs(r.Context()).Undo(r.Context(), id); err != nil {
		h.fail(w, r, err, back)
		return
	}
	flashSuccess(w, "Log removed")
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *PageHandler) HabitsList(w http.ResponseWriter, r *http.Request) {
	tab := "active"
	if r.URL.Query().Get("tab") == "archived" {
		tab = "archived"
	}

	hr := h.data.habits(r.Context())
	view := map[string]any{"Title": "My Habits", "Nav": "habits", "Tab": tab}
	if _, err := hr.List(r.Context(), true); err != nil {
		h.logger.Error("list habits", "error", err)
		view["Flash"] = &Flash{Kind: "error", Title: apperror.UserMessage(err), Message: "Please try again."}
	}
	view["Active"] = hr.Active()
	view["Archived"] = hr.Archived()
	h.render.Page(w, r, http.StatusOK, "habits", view)
}

func (h *PageHandler) NewHabit(w http.ResponseWriter, r *http.Request) {
	h.renderNew(w, r, http.StatusOK, habit.DefaultInput(), nil)
}

func (h *PageHandler) renderNew(w http.ResponseWriter, r *http.Request, status int, in model.HabitInput, errs apperror.ValidationErrors) {
	h.render.Page(w, r, status, "habit_new", map[string]any{
		"Title": "New Habit",
		"Form":  newHabitForm("/habits", "/habits", "Create Habit", in, errs),
	})
}

func (h *PageHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	in, errs := parseHabitForm(r)
	if len(errs) > 0 {
		h.renderNew(w, r, http.StatusUnprocessableEntity, in, errs)
		return
	}

	key, ok := h.begin(w, r, "create", "", "/habits/new")
	if !ok {
		return
	}
	defer h.actions.Finish(key)

	created, err := h.data.habits(r.Context()).Create(r.Context(), in)
	var ve apperror.ValidationErrors
	switch {
	case errors.As(err, &ve):
		h.renderNew(w, r, http.StatusUnprocessableEntity, in, ve)
		return
	case err != nil:
		h.logger.Error("create habit", "error", err)
		h.render.Page(w, r, http.StatusInternalServerError, "habit_new", map[string]any{
			"Title": "New Habit",
			"Form":  newHabitForm("/habits", "/habits", "Create Habit", in, nil),
			"Flash": &Flash{Kind: "error", Title: apperror.UserMessage(err), Message: "Please try again."},
		})
		return
	}

	h.logger.Info("habit created", "habit", created.ID, "user", created.UserID)
	flashSuccess(w, "Habit created")
	http.Redirect(w, r, "/habits", http.StatusSeeOther)
}

type detailState struct {
	form     model.HabitInput
	errs     apperror.ValidationErrors
	logNotes string
	logAt    string
}

// renderDetail loads history for hb and renders the detail page. state
// carries form values and errors back after a failed post.
func (h *PageHandler) renderDetail(w http.ResponseWriter, r *http.Request, status int, lr *habitlog.Repository, hb model.Habit, state *detailState) {
	if state == nil {
		state = &detailState{form: inputFromHabit(hb)}
	}

	view := map[string]any{
		"Title":    hb.Name,
		"Nav":      "habits",
		"Habit":    hb,
		"Loc":      lr.Location(),
		"LogNotes": state.logNotes,
		"LogAt":    state.logAt,
		"Errors":   state.errs.Map(),
		"Form":     newHabitForm("/habits/"+hb.ID, "/habits", "Save Changes", state.form, state.errs),
	}
	logs, err := lr.ListAll(r.Context(), hb.ID)
	if err != nil {
		h.logger.Error("list habit logs", "habit", hb.ID, "error", err)
		view["Flash"] = &Flash{Kind: "error", Title: apperror.UserMessage(err), Message: "Please try again."}
		logs = []model.HabitLog{}
	}
	now := lr.Now()
	view["Logs"] = logs
	view["TodayCount"] = lr.CountInRange(hb.ID, now)
	view["DueToday"] = recurrence.IsDueOn(hb, now)
	h.render.Page(w, r, status, "habit_detail", view)
}

// loadHabit fetches the path's habit, rendering the 404 or error page when
// it cannot.
func (h *PageHandler) loadHabit(w http.ResponseWriter, r *http.Request, hr *habit.Repository) (*model.Habit, bool) {
	hb, err := hr.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("get habit", "habit", r.PathValue("id"), "error", err)
		h.render.Error(w, r, http.StatusInternalServerError, apperror.UserMessage(err), "/habits")
		return nil, false
	}
	if hb == nil {
		h.render.NotFound(w, r)
		return nil, false
	}
	return hb, true
}

func (h *PageHandler) HabitDetail(w http.ResponseWriter, r *http.Request) {
	hb, ok := h.loadHabit(w, r, h.data.habits(r.Context()))
	if !ok {
		return
	}
	h.renderDetail(w, r, http.StatusOK, h.data.logs(r.Context()), *hb, nil)
}

// UpdateHabit sends only the fields the form changed.
func (h *PageHandler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	hr := h.data.habits(r.Context())
	hb, ok := h.loadHabit(w, r, hr)
	if !ok {
		return
	}
	lr := h.data.logs(r.Context())

	in, errs := parseHabitForm(r)
	if len(errs) > 0 {
		h.renderDetail(w, r, http.StatusUnprocessableEntity, lr, *hb, &detailState{form: in, errs: errs})
		return
	}

	key, ok := h.begin(w, r, "update", hb.ID, "/habits/"+hb.ID)
	if !ok {
		return
	}
	defer h.actions.Finish(key)

	err := hr.Update(r.Context(), hb.ID, habit.Diff(*hb, in))
	var ve apperror.ValidationErrors
	switch {
	case errors.As(err, &ve):
		h.renderDetail(w, r, http.StatusUnprocessableEntity, lr, *hb, &detailState{form: in, errs: ve})
		return
	case err != nil:
		h.fail(w, r, err, "/habits/"+hb.ID)
		return
	}
	flashSuccess(w, "Habit updated")
	http.Redirect(w, r, "/habits/"+hb.ID, http.StatusSeeOther)
}

// LogHabit records a completion from the detail page, optionally backdated.
func (h *PageHandler) LogHabit(w http.ResponseWriter, r *http.Request) {
	hb, ok := h.loadHabit(w, r, h.data.habits(r.Context()))
	if !ok {
		return
	}
	lr := h.data.logs(r.Context())
	notes := r.FormValue("notes")
	at := r.FormValue("completed_at")

	completedAt, fe := parseCompletedAt(at, lr.Location(), lr.Now())
	if fe != nil {
		h.renderDetail(w, r, http.StatusUnprocessableEntity, lr, *hb, &detailState{
			form: inputFromHabit(*hb), errs: apperror.ValidationErrors{*fe}, logNotes: notes, logAt: at,
		})
		return
	}

	key, ok := h.begin(w, r, "log", hb.ID, "/habits/"+hb.ID)
	if !ok {
		return
	}
	defer h.actions.Finish(key)

	_, err := lr.LogCompletion(r.Context(), hb.ID, notes, completedAt)
	var ve apperror.ValidationErrors
	switch {
	case errors.As(err, &ve):
		h.renderDetail(w, r, http.StatusUnprocessableEntity, lr, *hb, &detailState{
			form: inputFromHabit(*hb), errs: ve, logNotes: notes, logAt: at,
		})
		return
	case err != nil:
		h.fail(w, r, err, "/habits/"+hb.ID)
		return
	}
	flashSuccess(w, "Habit logged!")
	http.Redirect(w, r, "/habits/"+hb.ID, http.StatusSeeOther)
}

func (h *PageHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, "archive", "Habit archived")
}

func (h *PageHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, "restore", "Habit restored")
}

func (h *PageHandler) setStatus(w http.ResponseWriter, r *http.Request, action, done string) {
	id := r.PathValue("id")
	back := nextPath(r, "/habits")
	key, ok := h.begin(w, r, action, id, back)
	if !ok {
		return
	}
	defer h.actions.Finish(key)

	hr := h.data.habits(r.Context())
	var err error
	if action == "archive" {
		err = hr.Archive(r.Context(), id)
	} else {
		err = hr.Restore(r.Context(), id)
	}
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	flashSuccess(w, done)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// DeleteConfirm opens the confirmation step for deleting a habit.
func (h *PageHandler) DeleteConfirm(w http.ResponseWriter, r *http.Request) {
	hb, ok := h.loadHabit(w, r, h.data.habits(r.Context()))
	if !ok {
		return
	}
	key := ActionKey(auth.UserID(r.Context()), "delete", hb.ID)
	if err := h.actions.Request(key); err != nil {
		h.render.Error(w, r, http.StatusConflict, "This habit is already being deleted.", "/habits")
		return
	}
	h.render.Page(w, r, http.StatusOK, "habit_delete", map[string]any{
		"Title":   "Delete Habit",
		"Nav":     "habits",
		"Habit":   *hb,
		"HideNav": true,
	})
}

func (h *PageHandler) DeleteCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	key := ActionKey(auth.UserID(r.Context()), "delete", id)
	if err := h.actions.Cancel(key); errors.Is(err, ErrActionInProgress) {
		h.render.Error(w, r, http.StatusConflict, "This habit is already being deleted.", "/habits")
		return
	}
	http.Redirect(w, r, "/habits/"+id, http.StatusSeeOther)
}

// Delete removes the habit once the confirmation step has been passed.
func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	key := ActionKey(auth.UserID(r.Context()), "delete", id)

	if r.FormValue("confirm") != "yes" {
		http.Redirect(w, r, "/habits/"+id+"/delete", http.StatusSeeOther)
		return
	}
	switch err := h.actions.Submit(key); {
	case errors.Is(err, ErrNotConfirmed):
		http.Redirect(w, r, "/habits/"+id+"/delete", http.StatusSeeOther)
		return
	case err != nil:
		h.render.Error(w, r, http.StatusConflict, "This habit is already being deleted.", "/habits")
		return
	}
	defer h.actions.Finish(key)

	if err := h.data.habits(r.Context()).Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "/habits")
		return
	}
	h.logger.Info("habit deleted", "habit", id, "user", auth.UserID(r.Context()))
	flashSuccess(w, "Habit deleted")
	http.Redirect(w, r, "/habits", http.StatusSeeOther)
}

func (h *PageHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	h.render.Page(w, r, http.StatusOK, "analytics", map[string]any{"Title": "Analytics", "Nav": "analytics"})
}
