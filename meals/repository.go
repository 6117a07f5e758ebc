// Package meals implements meal records: owner-scoped persistence, the
// create/delete coordination between the database row and the stored image
// file, and the HTTP surface.
package meals

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/caloriecam-go/apperror"
)

// Repository persists meal rows. Every read and delete is scoped by the
// owning user's id; there is no unscoped access path.
type Repository interface {
	Insert(ctx context.Context, meal *Meal) (*Meal, error)
	ListByOwnerAndRange(ctx context.Context, ownerID int, start, end time.Time) ([]Meal, error)
	// DeleteByOwner removes the meal identified jointly by (mealID,
	// ownerID) and returns the deleted row. A meal that does not exist and
	// a meal owned by someone else are both NotFound.
	DeleteByOwner(ctx context.Context, ownerID, mealID int) (*Meal, error)
}

// PostgresRepository implements Repository over a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Insert stores a new meal row and returns it with its server-assigned id
// and timestamp.
func (r *PostgresRepository) Insert(ctx context.Context, meal *Meal) (*Meal, error) {
	query := `INSERT INTO meals (user_id, meal_type, image_path, calories, description)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		meal.UserID, string(meal.MealType), meal.ImagePath, meal.Calories, meal.Description,
	).Scan(&meal.ID, &meal.CreatedAt)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to create meal", err)
	}
	return meal, nil
}

// ListByOwnerAndRange returns the owner's meals created in [start, end),
// newest first.
func (r *PostgresRepository) ListByOwnerAndRange(ctx context.Context, ownerID int, start, end time.Time) ([]Meal, error) {
	query := `SELECT id, user_id, meal_type, image_path, calories, description, created_at
              FROM meals
              WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
              ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ownerID, start, end)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list meals", err)
	}
	defer rows.Close()

	result := make([]Meal, 0)
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, apperror.NewDatabaseError("failed to scan meal", err)
		}
		result = append(result, *meal)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read meals", err)
	}
	return result, nil
}

// DeleteByOwner deletes and returns the meal. The WHERE clause carries both
// keys, so a non-owner gets NotFound without learning whether the row
// exists.
func (r *PostgresRepository) DeleteByOwner(ctx context.Context, ownerID, mealID int) (*Meal, error) {
	query := `DELETE FROM meals
              WHERE id = $1 AND user_id = $2
              RETURNING id, user_id, meal_type, image_path, calories, description, created_at`
	meal, err := scanMeal(r.pool.QueryRow(ctx, query, mealID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("meal not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to delete meal", err)
	}
	return meal, nil
}

// scanMeal reads one meal row, converting the nullable description.
func scanMeal(row pgx.Row) (*Meal, error) {
	var meal Meal
	var mealType string
	var description sql.NullString
	err := row.Scan(
		&meal.ID,
		&meal.UserID,
		&mealType,
		&meal.ImagePath,
		&meal.Calories,
		&description,
		&meal.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	meal.MealType = MealType(mealType)
	if description.Valid {
		meal.Description = &description.String
	}
	return &meal, nil
}
