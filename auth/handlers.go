package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/user/caloriecam-go/apperror"
)

// Handlers exposes the auth service over HTTP.
type Handlers struct {
	service *AuthService
}

// NewHandlers creates the HTTP handlers for signup and login.
func NewHandlers(service *AuthService) *Handlers {
	return &Handlers{service: service}
}

// HandleSignup registers a new user and returns its public fields with 201.
func (h *Handlers) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewValidationError("invalid request body", err))
			return
		}
		defer r.Body.Close()

		user, err := h.service.Signup(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}

// HandleLogin authenticates a username/password form post and returns a
// bearer token. The body follows the OAuth2 password-grant shape
// (form-encoded username and password fields).
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			WriteError(w, r, apperror.NewValidationError("invalid form body", err))
			return
		}

		username := r.PostFormValue("username")
		password := r.PostFormValue("password")
		if username == "" || password == "" {
			WriteError(w, r, apperror.NewValidationError("username and password are required", nil))
			return
		}

		resp, err := h.service.Login(r.Context(), username, password)
		if err != nil {
			if apperror.IsAuthError(err) {
				w.Header().Set("WWW-Authenticate", "Bearer")
			}
			WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

// WriteError renders any error as the standard JSON error body with the
// status code its category maps to. Non-AppError values become opaque 500s.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred", err)
	}

	if appErr.StatusCode() >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", appErr.Error())
	}

	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
