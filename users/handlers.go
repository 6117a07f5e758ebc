package users

import (
	"encoding/json"
	"net/http"

	"github.com/user/caloriecam-go/apperror"
	"github.com/user/caloriecam-go/auth"
)

// UserHandlers exposes the authenticated user's profile over HTTP.
type UserHandlers struct {
	service *UserService
}

// NewUserHandlers creates the profile HTTP handlers.
func NewUserHandlers(service *UserService) *UserHandlers {
	return &UserHandlers{service: service}
}

// HandleGetMe returns the authenticated user's public fields.
func (h *UserHandlers) HandleGetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no authenticated user in request context", nil))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(user)
	}
}

// HandleUpdateMe merge-patches the authenticated user's preferences.
func (h *UserHandlers) HandleUpdateMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no authenticated user in request context", nil))
			return
		}

		var req UpdateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			auth.WriteError(w, r, apperror.NewValidationError("invalid request body", err))
			return
		}
		defer r.Body.Close()

		updated, err := h.service.UpdatePreferences(r.Context(), user, &req)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(updated)
	}
}
