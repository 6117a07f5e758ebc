package users

import (
	"context"

	"github.com/user/caloriecam-go/apperror"
	"github.com/user/caloriecam-go/auth"
)

// UserService holds the profile business logic.
type UserService struct {
	repo Repository
}

// NewUserService creates a UserService over the given repository.
func NewUserService(repo Repository) *UserService {
	return &UserService{repo: repo}
}

// GetProfile returns the user's current record.
func (s *UserService) GetProfile(ctx context.Context, userID int) (*auth.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdatePreferences applies a merge-patch update to the user's
// preferences: a nil calorie limit leaves the stored value untouched.
func (s *UserService) UpdatePreferences(ctx context.Context, user *auth.User, req *UpdateUserRequest) (*auth.User, error) {
	if req.DailyCalorieLimit == nil {
		return user, nil
	}
	if *req.DailyCalorieLimit <= 0 {
		return nil, apperror.NewValidationError("daily_calorie_limit must be positive", nil)
	}
	return s.repo.UpdateCalorieLimit(ctx, user.ID, *req.DailyCalorieLimit)
}
