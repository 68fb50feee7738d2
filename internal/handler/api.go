package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/auth"
	"github.com/dukerupert/fittrack/internal/dashboard"
	"github.com/dukerupert/fittrack/internal/habit"
	"github.com/dukerupert/fittrack/internal/model"
)

const maxBody = 1 << 20

// APIHandler exposes the repositories as JSON under /api.
type APIHandler struct {
	data    Data
	actions *ActionTracker
	logger  *slog.Logger
}

func NewAPIHandler(data Data, actions *ActionTracker, logger *slog.Logger) *APIHandler {
	return &APIHandler{data: data, actions: actions, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps a repository error onto a status code.
func (h *APIHandler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var ve apperror.ValidationErrors
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": ve})
	case errors.Is(err, apperror.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrActionInProgress):
		writeError(w, http.StatusConflict, "This action is already in progress")
	default:
		h.logger.Error("api request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, apperror.UserMessage(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// guard runs fn under the duplicate-submission lock for key.
func (h *APIHandler) guard(r *http.Request, action, id string, fn func() error) error {
	key := ActionKey(auth.UserID(r.Context()), action, id)
	if err := h.actions.Begin(key); err != nil {
		return ErrActionInProgress
	}
	defer h.actions.Finish(key)
	return fn()
}

func (h *APIHandler) ListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := h.data.habits(r.Context()).List(r.Context(), r.URL.Query().Get("include_archived") == "true")
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

func (h *APIHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	in := habit.DefaultInput()
	if !decodeJSON(w, r, &in) {
		return
	}

	var created *model.Habit
	err := h.guard(r, "create", "", func() error {
		var err error
		created, err = h.data.habits(r.Context()).Create(r.Context(), in)
		return err
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *APIHandler) GetHabit(w http.ResponseWriter, r *http.Request) {
	hb, err := h.data.habits(r.Context()).GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if hb == nil {
		writeError(w, http.StatusNotFound, "Habit not found")
		return
	}
	writeJSON(w, http.StatusOK, hb)
}

// UpdateHabit applies a partial update and returns the merged habit.
func (h *APIHandler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var patch model.HabitPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	hr := h.data.habits(r.Context())
	var updated *model.Habit
	err := h.guard(r, "update", id, func() error {
		current, err := hr.GetByID(r.Context(), id)
		if err != nil {
			return err
		}
		if current == nil {
			return apperror.ErrNotFound
		}
		if err := hr.Update(r.Context(), id, patch); err != nil {
			return err
		}
		for _, m := range hr.Habits() {
			if m.ID == id {
				updated = &m
				break
			}
		}
		return nil
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *APIHandler) ArchiveHabit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.guard(r, "archive", id, func() error {
		return h.data.habits(r.Context()).Archive(r.Context(), id)
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) RestoreHabit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.guard(r, "restore", id, func() error {
		return h.data.habits(r.Context()).Restore(r.Context(), id)
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteHabit requires ?confirm=true, which stands in for the confirmation
// step of the HTML flow.
func (h *APIHandler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "Deleting a habit requires confirm=true")
		return
	}

	key := ActionKey(auth.UserID(r.Context()), "delete", id)
	if err := h.actions.Request(key); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if err := h.actions.Submit(key); err != nil {
		h.writeFailure(w, r, ErrActionInProgress)
		return
	}
	defer h.actions.Finish(key)

	if err := h.data.habits(r.Context()).Delete(r.Context(), id); err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.data.logs(r.Context()).ListAll(r.Context(), r.URL.Query().Get("habit_id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *APIHandler) ListTodayLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.data.logs(r.Context()).ListToday(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

type logRequest struct {
	Notes       string    `json:"notes"`
	CompletedAt time.Time `json:"completed_at"`
}

// LogCompletion records a completion. An empty body logs one for now.
func (h *APIHandler) LogCompletion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req logRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	lr := h.data.logs(r.Context())
	if !req.CompletedAt.IsZero() && req.CompletedAt.After(lr.Now()) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": apperror.ValidationErrors{
			{Field: "completed_at", Message: "Completion time cannot be in the future"},
		}})
		return
	}

	var created *model.HabitLog
	err := h.guard(r, "log", id, func() error {
		var err error
		created, err = lr.LogCompletion(r.Context(), id, req.Notes, req.CompletedAt)
		return err
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *APIHandler) UndoLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := h.guard(r, "undo", id, func() error {
		return h.data.logs(r.Context()).Undo(r.Context(), id)
	})
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dashboardResponse struct {
	dashboard.Summary
	Ratio   float64 `json:"ratio"`
	Percent int     `json:"percent"`
}

func (h *APIHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
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
	if err := g.Wait(); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	s := dashboard.Build(hr.Habits(), lr.TodayLogs(), lr.Now())
	writeJSON(w, http.StatusOK, dashboardResponse{Summary: s, Ratio: s.Ratio(), Percent: s.Percent()})
}
