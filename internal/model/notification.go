package model

import "time"

type NotificationType string

const (
	NotifyPushReminders     NotificationType = "push_reminders"
	NotifyAchievementAlerts NotificationType = "achievement_alerts"
	NotifyWeeklySummary     NotificationType = "weekly_summary"
)

// NotificationTypes lists the toggles shown on the notification settings page.
var NotificationTypes = []NotificationType{
	NotifyPushReminders,
	NotifyAchievementAlerts,
	NotifyWeeklySummary,
}

func (t NotificationType) Label() string {
	switch t {
	case NotifyPushReminders:
		return "Push Notifications"
	case NotifyAchievementAlerts:
		return "Achievement Alerts"
	case NotifyWeeklySummary:
		return "Weekly Summary"
	}
	return string(t)
}

func (t NotificationType) Description() string {
	switch t {
	case NotifyPushReminders:
		return "Receive habit reminders on your device"
	case NotifyAchievementAlerts:
		return "Get notified when you hit milestones"
	case NotifyWeeklySummary:
		return "Receive a weekly progress report"
	}
	return ""
}

type NotificationPreference struct {
	UserID           string           `json:"user_id"`
	NotificationType NotificationType `json:"notification_type"`
	Enabled          bool             `json:"enabled"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
