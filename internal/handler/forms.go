package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/model"
	"github.com/dukerupert/fittrack/internal/recurrence"
)

// datetime-local input format
const completedAtLayout = "2006-01-02T15:04"

// parseHabitForm reads the habit form. Values that cannot be parsed at all
// are reported here; everything else is left to habit.Validate.
func parseHabitForm(r *http.Request) (model.HabitInput, apperror.ValidationErrors) {
	var errs apperror.ValidationErrors
	in := model.HabitInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    model.Category(r.FormValue("category")),
		Frequency:   model.Frequency(r.FormValue("frequency")),
		Color:       r.FormValue("color"),
		Icon:        r.FormValue("icon"),
	}

	days, err := recurrence.ParseWeekdays(r.Form["frequency_days"])
	if err != nil {
		errs = append(errs, apperror.FieldError{Field: "frequency_days", Message: "Days must be between Sunday and Saturday"})
	}
	in.FrequencyDays = days

	in.TargetPerPeriod = model.DefaultTarget
	if v := strings.TrimSpace(r.FormValue("target_per_period")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, apperror.FieldError{Field: "target_per_period", Message: "Target must be a whole number"})
		} else {
			in.TargetPerPeriod = n
		}
	}
	return in, errs
}

// inputFromHabit pre-fills the edit form.
func inputFromHabit(h model.Habit) model.HabitInput {
	return model.HabitInput{
		Name:            h.Name,
		Description:     h.DescriptionText(),
		Category:        h.Category,
		Frequency:       h.Frequency,
		FrequencyDays:   h.FrequencyDays,
		TargetPerPeriod: h.TargetPerPeriod,
		Color:           h.Color,
		Icon:            h.Icon,
	}
}

// parseCompletedAt reads a backdated completion time in loc. An empty value
// is the zero time, meaning now.
func parseCompletedAt(value string, loc *time.Location, now time.Time) (time.Time, *apperror.FieldError) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(completedAtLayout, value, loc)
	if err != nil {
		return time.Time{}, &apperror.FieldError{Field: "completed_at", Message: "Enter a valid date and time"}
	}
	if t.After(now) {
		return time.Time{}, &apperror.FieldError{Field: "completed_at", Message: "Completion time cannot be in the future"}
	}
	return t, nil
}

// nextPath returns the form's "next" value when it is a local path.
func nextPath(r *http.Request, fallback string) string {
	next := r.FormValue("next")
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

type habitForm struct {
	Action      string
	Input       model.HabitInput
	Errors      map[string]string
	Categories  []model.Category
	Frequencies []model.Frequency
	Palette     []string
	Cancel      string
	Submit      string
}

func newHabitForm(action, cancel, submit string, in model.HabitInput, errs apperror.ValidationErrors) habitForm {
	return habitForm{
		Action:      action,
		Input:       in,
		Errors:      errs.Map(),
		Categories:  model.Categories,
		Frequencies: model.Frequencies,
		Palette:     model.Palette,
		Cancel:      cancel,
		Submit:      submit,
	}
}
