// Package users provides the user repository and the profile/preferences
// HTTP surface. The repository is the single place where username
// uniqueness is enforced and where storage errors are translated into the
// application taxonomy.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/caloriecam-go/apperror"
	"github.com/user/caloriecam-go/auth"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// Repository is the full user persistence contract. It extends
// auth.UserStore with the lookups and updates the profile surface needs.
type Repository interface {
	auth.UserStore
	GetUserByID(ctx context.Context, id int) (*auth.User, error)
	UpdateCalorieLimit(ctx context.Context, userID int, limit int) (*auth.User, error)
}

// PostgresRepository implements Repository over a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// CreateUser inserts a new user row. A unique violation on the username is
// surfaced as a Conflict, covering the race where two signups for the same
// name pass the service's pre-check simultaneously.
func (r *PostgresRepository) CreateUser(ctx context.Context, username, hashedPassword string, dailyCalorieLimit int) (*auth.User, error) {
	user := &auth.User{
		Username:          username,
		HashedPassword:    hashedPassword,
		DailyCalorieLimit: dailyCalorieLimit,
	}

	query := `INSERT INTO users (username, password_hash, daily_calorie_limit)
              VALUES ($1, $2, $3)
              RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query, username, hashedPassword, dailyCalorieLimit).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "username") {
			return nil, apperror.NewConflictError("username already registered", err)
		}
		return nil, apperror.NewDatabaseError("failed to create user", err)
	}
	return user, nil
}

// GetUserByUsername looks a user up by its unique username.
func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	var user auth.User
	query := `SELECT id, username, password_hash, daily_calorie_limit, created_at
              FROM users WHERE username = $1`
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.HashedPassword,
		&user.DailyCalorieLimit,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user '%s' not found", username), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user by username", err)
	}
	return &user, nil
}

// GetUserByID looks a user up by primary key.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int) (*auth.User, error) {
	var user auth.User
	query := `SELECT id, username, password_hash, daily_calorie_limit, created_at
              FROM users WHERE id = $1`
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.HashedPassword,
		&user.DailyCalorieLimit,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", id), nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user by id", err)
	}
	return &user, nil
}

// UpdateCalorieLimit sets the user's daily calorie limit and returns the
// updated row.
func (r *PostgresRepository) UpdateCalorieLimit(ctx context.Context, userID int, limit int) (*auth.User, error) {
	var user auth.User
	query := `UPDATE users SET daily_calorie_limit = $1
              WHERE id = $2
              RETURNING id, username, password_hash, daily_calorie_limit, created_at`
	err := r.pool.QueryRow(ctx, query, limit, userID).Scan(
		&user.ID,
		&user.Username,
		&user.HashedPassword,
		&user.DailyCalorieLimit,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("user with ID %d not found", userID), nil)
		}
		return nil, apperror.NewDatabaseError("failed to update calorie limit", err)
	}
	return &user, nil
}
