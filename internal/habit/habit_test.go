package habit

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/model"
)

func newInput(name string) model.HabitInput {
	in := DefaultInput()
	in.Name = name
	return in
}

func TestCreatePrependsToMirror(t *testing.T) {
	table := newMemTable()
	repo := NewRepository(table, "u1")
	ctx := context.Background()

	if _, err := repo.Create(ctx, newInput("First")); err != nil {
		t.Fatalf("create first: %v", err)
	}
	h, err := repo.Create(ctx, newInput("Second"))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	habits := repo.Habits()
	if len(habits) != 2 {
		t.Fatalf("len = %d, want 2", len(habits))
	}
	if habits[0].ID != h.ID {
		t.Errorf("first = %q, want newly created %q", habits[0].Name, h.Name)
	}
}

func TestCreateEmptyNameSkipsTable(t *testing.T) {
	table := newMemTable()
	repo := NewRepository(table, "u1")

	_, err := repo.Create(context.Background(), newInput("   "))
	var ve apperror.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	if got := ve.Field("name"); got != "Name is required" {
		t.Errorf("name message = %q", got)
	}
	if table.calls != 0 {
		t.Errorf("table calls = %d, want 0", table.calls)
	}
	if len(repo.Habits()) != 0 {
		t.Error("mirror changed on invalid input")
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	repo := NewRepository(newMemTable(), "u1")

	h, err := repo.Create(context.Background(), model.HabitInput{Name: "Walk", TargetPerPeriod: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if h.Category != model.CategoryOther || h.Frequency != model.FrequencyDaily {
		t.Errorf("category/frequency = %q/%q", h.Category, h.Frequency)
	}
	if h.Color != model.DefaultColor || h.Icon != model.DefaultIcon {
		t.Errorf("color/icon = %q/%q", h.Color, h.Icon)
	}
	if h.Status != model.StatusActive {
		t.Errorf("status = %q", h.Status)
	}
}

func TestCreateRemoteFailureKeepsMirror(t *testing.T) {
	table := newMemTable()
	repo := NewRepository(table, "u1")
	ctx := context.Background()

	if _, err := repo.Create(ctx, newInput("Kept")); err != nil {
		t.Fatalf("create: %v", err)
	}
	table.fail = true

	_, err := repo.Create(ctx, newInput("Lost"))
	var re *apperror.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if re.Action != "Error creating habit" {
		t.Errorf("action = %q", re.Action)
	}
	if !errors.Is(err, errUnavailable) {
		t.Error("expected cause to unwrap")
	}
	if n := len(repo.Habits()); n != 1 {
		t.Errorf("mirror len = %d, want 1", n)
	}
}

func TestListReplacesMirror(t *testing.T) {
	table := newMemTable()
	ctx := context.Background()
	seed := NewRepository(table, "u1")
	seed.Create(ctx, newInput("A"))
	seed.Create(ctx, newInput("B"))
	NewRepository(table, "u2").Create(ctx, newInput("Other user"))

	repo := NewRepository(table, "u1")
	habits, err := repo.List(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(habits) != 2 {
		t.Fatalf("len = %d, want 2", len(habits))
	}
	if habits[0].Name != "B" {
		t.Errorf("first = %q, want newest B", habits[0].Name)
	}

	table.fail = true
	if _, err := repo.List(ctx, false); err == nil {
		t.Fatal("expected error")
	}
	if n := len(repo.Habits()); n != 2 {
		t.Errorf("mirror len after failure = %d, want 2", n)
	}
}

func TestArchiveAndRestore(t *testing.T) {
	table := newMemTable()
	repo := NewRepository(table, "u1")
	ctx := context.Background()

	h, _ := repo.Create(ctx, newInput("Journal"))

	if err := repo.Archive(ctx, h.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if len(repo.Active()) != 0 || len(repo.Archived()) != 1 {
		t.Errorf("after archive: active=%d archived=%d", len(repo.Active()), len(repo.Archived()))
	}
	active, _ := NewRepository(table, "u1").List(ctx, false)
	if len(active) != 0 {
		t.Errorf("remote active = %d, want 0", len(active))
	}

	if err := repo.Restore(ctx, h.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(repo.Active()) != 1 || len(repo.Archived()) != 0 {
		t.Errorf("after restore: active=%d archived=%d", len(repo.Active()), len(repo.Archived()))
	}
}

func TestUpdateSendsOnlyChangedFields(t *testing.T) {
	table := newMemTable()
	repo := NewRepository(table, "u1")
	ctx := context.Background()

	h, _ := repo.Create(ctx, newInput("Read"))
	target := 3
	if err := repo.Update(ctx, h.ID, model.HabitPatch{TargetPerPeriod: &target}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if table.lastUp.Name != nil || table.lastUp.Status != nil {
		t.Errorf("patch sent extra fields: %+v", table.lastUp)
	}
	got := repo.Habits()[0]
	if got.TargetPerPeriod != 3 || got.Name != "Read" {
		t.Errorf("mirror = %+v", got)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	repo := NewRepository(newMemTable(), "u1")
	name := "x"

	err := repo.Update(context.Background(), "missing", model.HabitPatch{Name: &name})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateValidatesPatch(t *testing.T) {
	table := newMemTable()
	repo := NewRepository(table, "u1")
	ctx := context.Background()
	h, _ := repo.Create(ctx, newInput("Read"))
	calls := table.calls

	zero := 0
	err := repo.Update(ctx, h.ID, model.HabitPatch{TargetPerPeriod: &zero})
	var ve apperror.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	if ve.Field("target_per_period") != "Target must be at least 1" {
		t.Errorf("message = %q", ve.Field("target_per_period"))
	}

	custom := model.FrequencyCustom
	if err := repo.Update(ctx, h.ID, model.HabitPatch{Frequency: &custom}); err == nil {
		t.Error("expected custom frequency without days to fail")
	}
	if table.calls != calls {
		t.Errorf("table called %d times for invalid patches", table.calls-calls)
	}
}

func TestUpdateChecksStoredScheduleWhenMirrorIsCold(t *testing.T) {
	table := newMemTable()
	ctx := context.Background()
	in := newInput("Stretch")
	in.Frequency = model.FrequencyCustom
	in.FrequencyDays = []int{1, 3}
	h, err := NewRepository(table, "u1").Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	repo := NewRepository(table, "u1")
	err = repo.Update(ctx, h.ID, model.HabitPatch{FrequencyDays: &[]int{}})
	var ve apperror.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	if ve.Field("frequency_days") != "Select at least one day" {
		t.Errorf("message = %q", ve.Field("frequency_days"))
	}

	stored, err := repo.GetByID(ctx, h.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID = %v, %v", stored, err)
	}
	if len(stored.FrequencyDays) != 2 {
		t.Errorf("stored days = %v, want [1 3]", stored.FrequencyDays)
	}
}

func TestDeleteThenGetByID(t *testing.T) {
	repo := NewRepository(newMemTable(), "u1")
	ctx := context.Background()
	h, _ := repo.Create(ctx, newInput("Floss"))

	if err := repo.Delete(ctx, h.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := repo.GetByID(ctx, h.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
	if len(repo.Habits()) != 0 {
		t.Error("expected mirror empty after delete")
	}
}

func TestDeleteFailureKeepsMirror(t *testing.T) {
	table := newMemTable()
	repo := NewRepository(table, "u1")
	ctx := context.Background()
	h, _ := repo.Create(ctx, newInput("Floss"))

	table.fail = true
	if err := repo.Delete(ctx, h.ID); err == nil {
		t.Fatal("expected error")
	}
	if len(repo.Habits()) != 1 {
		t.Error("mirror changed on failed delete")
	}
}

func TestGetByIDOtherUser(t *testing.T) {
	table := newMemTable()
	ctx := context.Background()
	h, _ := NewRepository(table, "u1").Create(ctx, newInput("Private"))

	got, err := NewRepository(table, "u2").GetByID(ctx, h.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil for another user's habit")
	}
}

func TestDiff(t *testing.T) {
	desc := "Morning"
	existing := model.Habit{
		Name:            "Run",
		Description:     &desc,
		Category:        model.CategoryFitness,
		Frequency:       model.FrequencyCustom,
		FrequencyDays:   []int{1, 3},
		TargetPerPeriod: 1,
		Color:           model.DefaultColor,
		Icon:            model.DefaultIcon,
	}
	in := model.HabitInput{
		Name:            "Run",
		Description:     "Morning",
		Category:        model.CategoryFitness,
		Frequency:       model.FrequencyCustom,
		FrequencyDays:   []int{3, 1, 5},
		TargetPerPeriod: 2,
		Color:           model.DefaultColor,
		Icon:            model.DefaultIcon,
	}

	p := Diff(existing, in)
	if p.Name != nil || p.Description != nil || p.Category != nil || p.Frequency != nil {
		t.Errorf("unchanged fields set: %+v", p)
	}
	if p.TargetPerPeriod == nil || *p.TargetPerPeriod != 2 {
		t.Errorf("target = %v", p.TargetPerPeriod)
	}
	if p.FrequencyDays == nil || len(*p.FrequencyDays) != 3 {
		t.Errorf("days = %v", p.FrequencyDays)
	}

	if !Diff(existing, model.HabitInput{
		Name: "Run", Description: "Morning", Category: model.CategoryFitness,
		Frequency: model.FrequencyCustom, FrequencyDays: []int{1, 3},
		TargetPerPeriod: 1, Color: model.DefaultColor, Icon: model.DefaultIcon,
	}).Empty() {
		t.Error("expected empty patch for identical input")
	}
}
