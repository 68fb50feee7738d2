package model

import "time"

type HabitLog struct {
	ID          string    `json:"id"`
	HabitID     string    `json:"habit_id"`
	UserID      string    `json:"user_id"`
	CompletedAt time.Time `json:"completed_at"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

func (l HabitLog) NotesText() string {
	if l.Notes == nil {
		return ""
	}
	return *l.Notes
}
