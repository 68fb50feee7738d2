// Package habit keeps a user's habits: a per-request repository that talks
// to the habits table and mirrors what it has fetched.
package habit

import (
	"context"
	"slices"
	"sync"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/model"
)

// Table is the remote habits table. Implementations scope every call to
// userID and return apperror.ErrNotFound when an update or delete matches no
// row.
type Table interface {
	List(ctx context.Context, userID string, includeArchived bool) ([]model.Habit, error)
	Get(ctx context.Context, userID, id string) (*model.Habit, error)
	Insert(ctx context.Context, userID string, in model.HabitInput) (*model.Habit, error)
	Update(ctx context.Context, userID, id string, patch model.HabitPatch) error
	Delete(ctx context.Context, userID, id string) error
}

// Repository is bound to one user. The mirror only changes after a remote
// call succeeds.
type Repository struct {
	table  Table
	userID string

	mu     sync.Mutex
	habits []model.Habit
}

func NewRepository(table Table, userID string) *Repository {
	return &Repository{table: table, userID: userID}
}

// List fetches the user's habits newest first and replaces the mirror.
func (r *Repository) List(ctx context.Context, includeArchived bool) ([]model.Habit, error) {
	habits, err := r.table.List(ctx, r.userID, includeArchived)
	if err != nil {
		return nil, apperror.Remote("Error fetching habits", err)
	}

	r.mu.Lock()
	r.habits = habits
	r.mu.Unlock()
	return slices.Clone(habits), nil
}

// Create validates in and inserts it. Invalid input never reaches the table.
func (r *Repository) Create(ctx context.Context, in model.HabitInput) (*model.Habit, error) {
	in = Normalize(in)
	if err := Validate(in); err != nil {
		return nil, err
	}

	h, err := r.table.Insert(ctx, r.userID, in)
	if err != nil {
		return nil, apperror.Remote("Error creating habit", err)
	}

	r.mu.Lock()
	r.habits = append([]model.Habit{*h}, r.habits...)
	r.mu.Unlock()
	return h, nil
}

// Update sends only the fields set in patch and merges them into the
// mirrored record.
func (r *Repository) Update(ctx context.Context, id string, patch model.HabitPatch) error {
	return r.update(ctx, id, patch, "Error updating habit")
}

func (r *Repository) update(ctx context.Context, id string, patch model.HabitPatch, action string) error {
	patch = NormalizePatch(patch)
	current := r.mirrored(id)
	if current == nil && (patch.Frequency != nil || patch.FrequencyDays != nil) {
		// The day rule depends on the stored schedule.
		h, err := r.table.Get(ctx, r.userID, id)
		if err != nil {
			return apperror.Remote(action, err)
		}
		current = h
	}
	if err := ValidatePatch(patch, current); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}

	if err := r.table.Update(ctx, r.userID, id, patch); err != nil {
		return apperror.Remote(action, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.habits {
		if r.habits[i].ID == id {
			r.habits[i] = patch.Apply(r.habits[i])
			break
		}
	}
	return nil
}

func (r *Repository) Archive(ctx context.Context, id string) error {
	s := model.StatusArchived
	return r.update(ctx, id, model.HabitPatch{Status: &s}, "Error archiving habit")
}

func (r *Repository) Restore(ctx context.Context, id string) error {
	s := model.StatusActive
	return r.update(ctx, id, model.HabitPatch{Status: &s}, "Error restoring habit")
}

// Delete removes the habit and, through the table's cascade, its logs.
// Callers gate this behind a confirmation step.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.table.Delete(ctx, r.userID, id); err != nil {
		return apperror.Remote("Error deleting habit", err)
	}

	r.mu.Lock()
	r.habits = slices.DeleteFunc(r.habits, func(h model.Habit) bool { return h.ID == id })
	r.mu.Unlock()
	return nil
}

// GetByID looks the habit up remotely. A missing habit is (nil, nil). A hit
// refreshes the mirrored copy.
func (r *Repository) GetByID(ctx context.Context, id string) (*model.Habit, error) {
	h, err := r.table.Get(ctx, r.userID, id)
	if err != nil {
		return nil, apperror.Remote("Error fetching habit", err)
	}
	if h == nil {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.habits, func(m model.Habit) bool { return m.ID == id })
	if i >= 0 {
		r.habits[i] = *h
	} else {
		r.habits = append(r.habits, *h)
	}
	out := *h
	return &out, nil
}

// Habits returns a copy of the mirror.
func (r *Repository) Habits() []model.Habit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.habits)
}

// Active returns mirrored habits with status active.
func (r *Repository) Active() []model.Habit {
	return r.filter(model.StatusActive)
}

// Archived returns mirrored habits with status archived.
func (r *Repository) Archived() []model.Habit {
	return r.filter(model.StatusArchived)
}

func (r *Repository) filter(s model.Status) []model.Habit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Habit{}
	for _, h := range r.habits {
		if h.Status == s {
			out = append(out, h)
		}
	}
	return out
}

func (r *Repository) mirrored(id string) *model.Habit {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.habits {
		if h.ID == id {
			return &h
		}
	}
	return nil
}

// Diff returns the patch that turns existing into in. Fields that already
// match are left nil.
func Diff(existing model.Habit, in model.HabitInput) model.HabitPatch {
	in = Normalize(in)
	var p model.HabitPatch
	if in.Name != existing.Name {
		p.Name = &in.Name
	}
	if in.Description != existing.DescriptionText() {
		p.Description = &in.Description
	}
	if in.Category != existing.Category {
		p.Category = &in.Category
	}
	if in.Frequency != existing.Frequency {
		p.Frequency = &in.Frequency
	}
	if !slices.Equal(in.FrequencyDays, existing.FrequencyDays) {
		days := in.FrequencyDays
		p.FrequencyDays = &days
	}
	if in.TargetPerPeriod != existing.TargetPerPeriod {
		p.TargetPerPeriod = &in.TargetPerPeriod
	}
	if in.Color != existing.Color {
		p.Color = &in.Color
	}
	if in.Icon != existing.Icon {
		p.Icon = &in.Icon
	}
	return p
}
