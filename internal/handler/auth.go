package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/casework/internal/auth"
	"github.com/dukerupert/casework/internal/middleware"
	"github.com/dukerupert/casework/internal/store"
)

type AuthHandler struct {
	caseworkers  *store.CaseworkerStore
	sessionStore *store.SessionStore
	validate     *validator.Validate
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(cs *store.CaseworkerStore, ss *store.SessionStore, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		caseworkers:  cs,
		sessionStore: ss,
		validate:     NewValidator(),
		secureCookie: secureCookie,
		logger:       logger.With("component", "auth"),
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login checks the password and sets the session cookie. Unknown emails and
// wrong passwords get the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, h.validate, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	cw, err := h.caseworkers.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if cw == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	hash, err := h.caseworkers.GetPasswordHash(cw.ID)
	if err != nil {
		h.logger.Error("login hash lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		h.logger.Warn("login failed", "caseworker_id", cw.ID, "remote", middleware.RealIP(r))
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	sess, err := h.sessionStore.Create(cw.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Info("caseworker logged in", "caseworker_id", cw.ID)
	writeJSON(w, http.StatusOK, cw)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := auth.SessionID(r.Context()); id != 0 {
		if err := h.sessionStore.Delete(id); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the logged-in caseworker.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cw, err := h.caseworkers.GetByID(auth.CaseworkerID(r.Context()))
	if err != nil || cw == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, cw)
}

// HashPassword hashes a caseworker password for storage.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
