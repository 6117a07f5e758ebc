package meals

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/user/caloriecam-go/analyzer"
	"github.com/user/caloriecam-go/apperror"
	"github.com/user/caloriecam-go/auth"
	"github.com/user/caloriecam-go/storage"
)

// Metrics is the slice of the metrics collector the meal pipeline reports
// to.
type Metrics interface {
	RecordAnalysisSuccess()
	RecordAnalysisFailure()
	RecordOrphanedUpload()
}

// MealService coordinates the meal lifecycle across three resources: the
// uploaded image file, the external analyzer, and the database row. No
// transaction spans the filesystem and the database, so the service uses a
// fixed ordering with compensating cleanup instead:
//
//   - create: write file, analyze, insert row; any failure after the file
//     write deletes the file before surfacing the error
//   - delete: delete row first, then best-effort delete the file; a crash
//     in between leaves an orphaned file, never a row without a file
type MealService struct {
	repo     Repository
	files    *storage.Store
	analyzer analyzer.Analyzer
	logger   *slog.Logger
	metrics  Metrics
}

// NewMealService wires the meal pipeline together.
func NewMealService(repo Repository, files *storage.Store, vision analyzer.Analyzer, logger *slog.Logger, m Metrics) *MealService {
	return &MealService{
		repo:     repo,
		files:    files,
		analyzer: vision,
		logger:   logger,
		metrics:  m,
	}
}

// Create stores the uploaded photo, analyzes it, and inserts the meal row.
// The image is durably on disk before the row is inserted, so a visible
// row always has a readable file.
func (s *MealService) Create(ctx context.Context, owner *auth.User, mealType MealType, filename, mimeType string, upload io.Reader) (*Meal, error) {
	if !mealType.Valid() {
		return nil, apperror.NewValidationError("meal_type must be one of breakfast, lunch, dinner", nil)
	}

	image, err := io.ReadAll(upload)
	if err != nil {
		return nil, apperror.NewValidationError("failed to read uploaded file", err)
	}
	if len(image) == 0 {
		return nil, apperror.NewValidationError("uploaded file is empty", nil)
	}

	path, err := s.files.Save(owner.ID, filename, bytes.NewReader(image))
	if err != nil {
		return nil, apperror.NewInternalError("failed to store uploaded file", err)
	}

	analysis, err := s.analyzer.AnalyzeMeal(ctx, mimeType, image)
	if err != nil {
		s.metrics.RecordAnalysisFailure()
		s.cleanupUpload(ctx, owner.ID, path, "analysis failed")
		return nil, err
	}
	s.metrics.RecordAnalysisSuccess()

	meal := &Meal{
		UserID:      owner.ID,
		MealType:    mealType,
		ImagePath:   path,
		Calories:    analysis.Calories,
		Description: &analysis.Description,
	}
	created, err := s.repo.Insert(ctx, meal)
	if err != nil {
		s.cleanupUpload(ctx, owner.ID, path, "meal insert failed")
		return nil, err
	}
	return created, nil
}

// ListToday returns the owner's meals from the server's current calendar
// day, newest first.
func (s *MealService) ListToday(ctx context.Context, ownerID int) ([]Meal, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)
	return s.repo.ListByOwnerAndRange(ctx, ownerID, start, end)
}

// Delete removes the owner's meal and then its backing image file. The row
// deletion commits first; if the file removal then fails, the meal stays
// deleted and the stray file is logged and counted for reconciliation.
func (s *MealService) Delete(ctx context.Context, ownerID, mealID int) (*Meal, error) {
	meal, err := s.repo.DeleteByOwner(ctx, ownerID, mealID)
	if err != nil {
		return nil, err
	}

	if err := s.files.Remove(meal.ImagePath); err != nil {
		s.metrics.RecordOrphanedUpload()
		s.logger.ErrorContext(ctx, "meal deleted but image file removal failed",
			"owner_id", ownerID, "meal_id", mealID, "path", meal.ImagePath, "error", err)
	}
	return meal, nil
}

// cleanupUpload is the compensating action for a failed create: the
// just-written file is deleted so no unreferenced upload is left behind.
func (s *MealService) cleanupUpload(ctx context.Context, ownerID int, path, reason string) {
	if err := s.files.Remove(path); err != nil {
		s.metrics.RecordOrphanedUpload()
		s.logger.ErrorContext(ctx, "failed to clean up upload after error",
			"owner_id", ownerID, "path", path, "reason", reason, "error", err)
	}
}
