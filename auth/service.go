// Package auth implements the authentication core: password hashing and
// verification, session token issuance and validation, and the middleware
// that turns a bearer token into a live user identity.
package auth

import (
	"context"

	"github.com/user/caloriecam-go/apperror"
)

// DefaultDailyCalorieLimit is applied at signup when the client does not
// supply a limit.
const DefaultDailyCalorieLimit = 2000

// UserStore is the slice of the user repository the auth subsystem needs.
// Implementations must map storage-level unique violations on the username
// to a Conflict error and misses to a NotFound error.
type UserStore interface {
	CreateUser(ctx context.Context, username, hashedPassword string, dailyCalorieLimit int) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// AuthService handles signup and login.
type AuthService struct {
	store  UserStore
	tokens *TokenService
}

// NewAuthService creates an AuthService backed by the given store and
// token service.
func NewAuthService(store UserStore, tokens *TokenService) *AuthService {
	return &AuthService{store: store, tokens: tokens}
}

// Signup creates a new user. The username must be unique; a duplicate is
// surfaced as a Conflict. A nil calorie limit falls back to the default.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	if req.Username == "" || len(req.Username) > 255 {
		return nil, apperror.NewValidationError("username must be between 1 and 255 characters", nil)
	}
	if req.Password == "" {
		return nil, apperror.NewValidationError("password is required", nil)
	}

	limit := DefaultDailyCalorieLimit
	if req.DailyCalorieLimit != nil {
		if *req.DailyCalorieLimit <= 0 {
			return nil, apperror.NewValidationError("daily_calorie_limit must be positive", nil)
		}
		limit = *req.DailyCalorieLimit
	}

	// Pre-check for an existing username so the common case gets a clean
	// Conflict without touching the unique index. Two concurrent signups
	// can still both pass this check; the store's unique constraint
	// settles that race and is mapped to the same Conflict.
	if _, err := s.store.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, apperror.NewConflictError("username already registered", nil)
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, apperror.NewInternalError("failed to hash password", err)
	}

	return s.store.CreateUser(ctx, req.Username, hashed, limit)
}

// Login verifies credentials and returns a fresh bearer token. An unknown
// username and a wrong password produce the same rejection, so a caller
// cannot learn whether the username exists.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewAuthError("incorrect username or password", nil)
		}
		return nil, err
	}

	if !CheckPassword(password, user.HashedPassword) {
		return nil, apperror.NewAuthError("incorrect username or password", nil)
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, apperror.NewInternalError("failed to issue token", err)
	}

	return &TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}
