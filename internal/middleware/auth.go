package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/casework/internal/auth"
	"github.com/dukerupert/casework/internal/store"
)

// SessionCookieName is the cookie carrying the caseworker's session token.
const SessionCookieName = "casework_session"

// RequireAuth validates the session cookie and populates AuthContext.
// Unauthenticated requests get a 401 JSON error.
func RequireAuth(sessionStore *store.SessionStore, caseworkers *store.CaseworkerStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			cw, err := caseworkers.GetByID(sess.CaseworkerID)
			if err != nil || cw == nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				CaseworkerID: cw.ID,
				Email:        cw.Email,
				SessionID:    sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "authentication required")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
