package auth

// SignupRequest is the registration payload. DailyCalorieLimit is optional
// and defaults server-side when absent.
type SignupRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	DailyCalorieLimit *int   `json:"daily_calorie_limit,omitempty"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
