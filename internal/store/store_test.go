package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/fittrack/internal/database"
	"github.com/dukerupert/fittrack/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(context.Background(), email, "Test User", "hash", "UTC")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func habitInput(name string) model.HabitInput {
	return model.HabitInput{
		Name:            name,
		Category:        model.CategoryHealth,
		Frequency:       model.FrequencyDaily,
		FrequencyDays:   []int{},
		TargetPerPeriod: 1,
		Color:           model.DefaultColor,
		Icon:            model.DefaultIcon,
	}
}
