package meals

import "time"

// MealType enumerates the meal slots a record can belong to.
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
)

// Valid reports whether t is one of the known meal types.
func (t MealType) Valid() bool {
	switch t {
	case MealTypeBreakfast, MealTypeLunch, MealTypeDinner:
		return true
	}
	return false
}

// Meal is a logged meal owned by exactly one user. ImagePath references the
// stored photo; the row and the file form a single logical unit, created
// and deleted together.
type Meal struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	MealType    MealType  `json:"meal_type"`
	ImagePath   string    `json:"image_path"`
	Calories    int       `json:"calories"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
