package meals

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/caloriecam-go/apperror"
	"github.com/user/caloriecam-go/auth"
)

// maxUploadBytes caps the multipart form we are willing to buffer.
const maxUploadBytes = 20 << 20

// MealHandlers exposes meal operations over HTTP. All routes assume the
// auth middleware already placed the caller's identity in the context.
type MealHandlers struct {
	service *MealService
}

// NewMealHandlers creates the meal HTTP handlers.
func NewMealHandlers(service *MealService) *MealHandlers {
	return &MealHandlers{service: service}
}

// RegisterRoutes mounts the meal routes on the given router.
func (h *MealHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleCreate())
	r.Get("/today", h.HandleListToday())
	r.Delete("/{mealID}", h.HandleDelete())
}

// HandleCreate accepts a multipart form with a meal_type field and an
// image file, runs the analysis pipeline, and returns the created meal.
func (h *MealHandlers) HandleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no authenticated user in request context", nil))
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			auth.WriteError(w, r, apperror.NewValidationError("invalid multipart form", err))
			return
		}

		mealType := MealType(r.FormValue("meal_type"))

		file, header, err := r.FormFile("file")
		if err != nil {
			auth.WriteError(w, r, apperror.NewValidationError("file field is required", err))
			return
		}
		defer file.Close()

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		meal, err := h.service.Create(r.Context(), user, mealType, header.Filename, mimeType, file)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, meal)
	}
}

// HandleListToday returns the caller's meals for the server's current day,
// newest first. An Accept-Language hint is accepted but has no server-side
// effect.
func (h *MealHandlers) HandleListToday() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no authenticated user in request context", nil))
			return
		}

		result, err := h.service.ListToday(r.Context(), user.ID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// HandleDelete removes one of the caller's meals and returns the deleted
// record. Meals the caller does not own answer 404.
func (h *MealHandlers) HandleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			auth.WriteError(w, r, apperror.NewAuthError("no authenticated user in request context", nil))
			return
		}

		mealID, err := strconv.Atoi(chi.URLParam(r, "mealID"))
		if err != nil {
			auth.WriteError(w, r, apperror.NewValidationError("meal id must be an integer", err))
			return
		}

		meal, err := h.service.Delete(r.Context(), user.ID, mealID)
		if err != nil {
			auth.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, meal)
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
