package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/fittrack/internal/auth"
	"github.com/dukerupert/fittrack/internal/store"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "fittrack_session"

// RequireAuth validates the session cookie and populates AuthContext.
// Page requests are redirected to /login; API requests get a JSON 401.
func RequireAuth(sessionStore *store.SessionStore, userStore *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w, r)
				return
			}

			sess, err := sessionStore.GetByToken(r.Context(), cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w, r)
				return
			}

			user, err := userStore.GetByID(r.Context(), sess.UserID)
			if err != nil || user == nil {
				unauthorized(w, r)
				return
			}

			ac := auth.AuthContext{
				UserID:    user.ID,
				SessionID: sess.ID,
				Email:     user.Email,
				Name:      user.Name,
				Timezone:  user.Timezone,
			}

			recordUser(r.Context(), user.ID)
			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Not signed in"}` + "\n"))
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
