package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/fittrack/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// List returns one preference per known notification type. Types without a
// stored row come back disabled.
func (s *NotificationStore) List(ctx context.Context, userID string) ([]model.NotificationPreference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT notification_type, enabled, updated_at FROM notification_preferences WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notification preferences: %w", err)
	}
	defer rows.Close()

	stored := map[model.NotificationType]model.NotificationPreference{}
	for rows.Next() {
		p := model.NotificationPreference{UserID: userID}
		var updatedAt string
		if err := rows.Scan(&p.NotificationType, &p.Enabled, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan notification preference: %w", err)
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		stored[p.NotificationType] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prefs := make([]model.NotificationPreference, 0, len(model.NotificationTypes))
	for _, t := range model.NotificationTypes {
		p, ok := stored[t]
		if !ok {
			p = model.NotificationPreference{UserID: userID, NotificationType: t}
		}
		prefs = append(prefs, p)
	}
	return prefs, nil
}

// Set upserts a single toggle.
func (s *NotificationStore) Set(ctx context.Context, userID string, t model.NotificationType, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_preferences (user_id, notification_type, enabled, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, notification_type) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at`,
		userID, t, enabled, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set notification preference: %w", err)
	}
	return nil
}
