package users

// UpdateUserRequest is the merge-patch body for preference updates. A nil
// field means "leave unchanged", not "reset".
type UpdateUserRequest struct {
	DailyCalorieLimit *int `json:"daily_calorie_limit,omitempty"`
}
