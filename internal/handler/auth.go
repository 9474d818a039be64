package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	appI18n "github.com/pavelanni/gradesheet/internal/i18n"
	"github.com/pavelanni/gradesheet/internal/model"
)

// requireAuth accepts a bearer API token or HTTP basic credentials and
// stores the active user in the request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.authenticate(r)
		if err != nil {
			slog.Error("authentication lookup failed", "error", err)
			h.fail(w, r, err)
			return
		}
		if user == nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="gradesheet", Basic realm="gradesheet"`)
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Error:     appI18n.T(r.Context(), "ErrUnauthorized"),
				RequestID: RequestIDFromContext(r.Context()),
			})
			return
		}
		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) authenticate(r *http.Request) (*model.User, error) {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		tok, err := h.store.GetAPIToken(strings.TrimSpace(token))
		if err != nil || tok == nil {
			return nil, err
		}
		user, err := h.store.GetUserByID(tok.UserID)
		if err != nil || user == nil || !user.Active {
			return nil, err
		}
		return user, nil
	}
	if username, password, ok := r.BasicAuth(); ok {
		return h.store.Authenticate(username, password)
	}
	return nil, nil
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: appI18n.T(r.Context(), "ErrUnauthorized")})
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			slog.Warn("role check failed", "user", user.Username, "role", user.Role)
			writeJSON(w, http.StatusForbidden, errorResponse{Error: appI18n.T(r.Context(), "ErrForbidden")})
		})
	}
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleCreateToken issues an API token for the authenticated user, usually
// called once with basic credentials.
func (h *Handler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	token, err := h.store.CreateAPIToken(user.ID, h.config.TokenTTL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slog.Info("issued API token", "user", user.Username)
	writeJSON(w, http.StatusCreated, tokenResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(h.config.TokenTTL).Truncate(time.Second),
	})
}

// handleRevokeToken deletes the bearer token used for the request.
func (h *Handler) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bearer token required"})
		return
	}
	if err := h.store.DeleteAPIToken(strings.TrimSpace(token)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
