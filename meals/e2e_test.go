package meals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/caloriecam-go/analyzer"
	"github.com/user/caloriecam-go/apperror"
	"github.com/user/caloriecam-go/auth"
	"github.com/user/caloriecam-go/config"
	"github.com/user/caloriecam-go/storage"
)

// userStoreFake implements auth.UserStore in memory for the end-to-end
// flow.
type userStoreFake struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*auth.User
}

func newUserStoreFake() *userStoreFake {
	return &userStoreFake{users: make(map[string]*auth.User)}
}

func (s *userStoreFake) CreateUser(_ context.Context, username, hashedPassword string, limit int) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return nil, apperror.NewConflictError("username already registered", nil)
	}
	s.nextID++
	user := &auth.User{
		ID:                s.nextID,
		Username:          username,
		HashedPassword:    hashedPassword,
		DailyCalorieLimit: limit,
		CreatedAt:         time.Now(),
	}
	s.users[username] = user
	return user, nil
}

func (s *userStoreFake) GetUserByUsername(_ context.Context, username string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("user '%s' not found", username), nil)
	}
	return user, nil
}

// newAPIServer assembles the same route layout main uses, on fakes where
// the real thing needs Postgres or the Gemini API.
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	userStore := newUserStoreFake()
	tokens := auth.NewTokenService(&config.AuthConfig{
		JWTSecret:     "e2e-secret",
		TokenDuration: 168 * time.Hour,
	})
	authHandlers := auth.NewHandlers(auth.NewAuthService(userStore, tokens))

	vision := &fakeAnalyzer{analysis: &analyzer.Analysis{
		Description: "Grilled salmon with rice.",
		Calories:    640,
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mealService := NewMealService(newFakeRepo(), store, vision, logger, &stubMetrics{})
	mealHandlers := NewMealHandlers(mealService)

	r := chi.NewRouter()
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", authHandlers.HandleSignup())
		r.Post("/login/token", authHandlers.HandleLogin())
	})
	r.Route("/api/v1/meals", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens, userStore))
		mealHandlers.RegisterRoutes(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, baseURL, username, password string) *http.Response {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	resp, err := http.Post(baseURL+"/api/v1/auth/login/token",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func uploadMeal(t *testing.T, baseURL, token, mealType string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("meal_type", mealType))
	part, err := mw.CreateFormFile("file", "dinner.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/meals/", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func authedRequest(t *testing.T, method, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestEndToEnd_MealLifecycle(t *testing.T) {
	t.Parallel()
	srv := newAPIServer(t)

	// Signup.
	resp := postJSON(t, srv.URL+"/api/v1/auth/signup", map[string]interface{}{
		"username": "alice",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[auth.User](t, resp)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, 2000, created.DailyCalorieLimit)

	// Login.
	resp = login(t, srv.URL, "alice", "secret123")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tokenResp := decodeBody[auth.TokenResponse](t, resp)
	require.NotEmpty(t, tokenResp.AccessToken)
	token := tokenResp.AccessToken

	// Create a meal from an upload.
	resp = uploadMeal(t, srv.URL, token, "dinner")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	meal := decodeBody[Meal](t, resp)
	assert.Equal(t, MealTypeDinner, meal.MealType)
	assert.Equal(t, 640, meal.Calories)
	require.NotNil(t, meal.Description)
	assert.Equal(t, "Grilled salmon with rice.", *meal.Description)

	// Today's listing contains exactly that meal.
	resp = authedRequest(t, http.MethodGet, srv.URL+"/api/v1/meals/today", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeBody[[]Meal](t, resp)
	require.Len(t, listed, 1)
	assert.Equal(t, meal.ID, listed[0].ID)
	assert.Equal(t, meal.Calories, listed[0].Calories)

	// Delete it.
	resp = authedRequest(t, http.MethodDelete, fmt.Sprintf("%s/api/v1/meals/%d", srv.URL, meal.ID), token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Listing is empty and the backing file is gone.
	resp = authedRequest(t, http.MethodGet, srv.URL+"/api/v1/meals/today", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed = decodeBody[[]Meal](t, resp)
	assert.Empty(t, listed)

	_, err := os.Stat(meal.ImagePath)
	assert.True(t, os.IsNotExist(err))
}

func TestEndToEnd_WrongPassword(t *testing.T) {
	t.Parallel()
	srv := newAPIServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/auth/signup", map[string]interface{}{
		"username": "alice",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	wrongPassword := login(t, srv.URL, "alice", "wrong")
	require.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
	unknownUser := login(t, srv.URL, "nobody", "wrong")
	require.Equal(t, http.StatusUnauthorized, unknownUser.StatusCode)

	// Identical bodies: the rejection must not reveal whether the
	// username exists.
	wrongBody, err := io.ReadAll(wrongPassword.Body)
	require.NoError(t, err)
	unknownBody, err := io.ReadAll(unknownUser.Body)
	require.NoError(t, err)
	assert.Equal(t, string(wrongBody), string(unknownBody))
}

func TestEndToEnd_CrossOwnerDeleteIsNotFound(t *testing.T) {
	t.Parallel()
	srv := newAPIServer(t)

	tokens := make(map[string]string, 2)
	for _, username := range []string{"alice", "bob"} {
		resp := postJSON(t, srv.URL+"/api/v1/auth/signup", map[string]interface{}{
			"username": username,
			"password": "pw-" + username,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = login(t, srv.URL, username, "pw-"+username)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		tokens[username] = decodeBody[auth.TokenResponse](t, resp).AccessToken
	}

	resp := uploadMeal(t, srv.URL, tokens["bob"], "lunch")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bobsMeal := decodeBody[Meal](t, resp)

	// Alice cannot delete Bob's meal, and learns nothing about it.
	resp = authedRequest(t, http.MethodDelete,
		fmt.Sprintf("%s/api/v1/meals/%d", srv.URL, bobsMeal.ID), tokens["alice"])
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Bob still sees it.
	resp = authedRequest(t, http.MethodGet, srv.URL+"/api/v1/meals/today", tokens["bob"])
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeBody[[]Meal](t, resp)
	require.Len(t, listed, 1)
	assert.Equal(t, bobsMeal.ID, listed[0].ID)
}
