package auth

import "time"

// User is the identity record. The password hash is never serialized; only
// public fields leave the server.
type User struct {
	ID                int       `json:"id"`
	Username          string    `json:"username"`
	HashedPassword    string    `json:"-"`
	DailyCalorieLimit int       `json:"daily_calorie_limit"`
	CreatedAt         time.Time `json:"created_at"`
}
