package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/userfolio/webapp/internal/services"
)

type contextKey string

const contextUserIDKey contextKey = "user_id"

// SessionCookieName is the cookie that carries the signed session value.
const SessionCookieName = "userfolio_session"

func userIDFromContext(ctx context.Context) (int, error) {
	id, ok := ctx.Value(contextUserIDKey).(int)
	if !ok || id < 1 {
		return 0, errors.New("missing user id")
	}
	return id, nil
}

// RequireSession validates the session cookie and injects the user ID
// into the request context. Requests without a valid session are
// redirected to the login page.
func RequireSession(sessions *services.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				redirectToLogin(w, r)
				return
			}

			userID, err := sessions.Validate(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, services.ErrSessionInvalid) {
					clearSessionCookie(w)
					redirectToLogin(w, r)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), contextUserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func setSessionCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
