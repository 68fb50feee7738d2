package auth

import (
	"context"
	"time"
)

type contextKey struct{}

// AuthContext is the signed-in user as resolved from the session cookie.
type AuthContext struct {
	UserID    string
	SessionID int64
	Email     string
	Name      string
	Timezone  string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}

// Location returns the user's zone, falling back to fallback when the
// stored name is empty or unknown.
func (ac AuthContext) Location(fallback *time.Location) *time.Location {
	if ac.Timezone != "" {
		if loc, err := time.LoadLocation(ac.Timezone); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}
