package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authProtectedServer(t *testing.T, tokens *TokenService, store UserStore) *httptest.Server {
	t.Helper()
	handler := RequireAuth(tokens, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(user.Username))
	}))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func doAuthedRequest(t *testing.T, url, authHeader string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRequireAuth_ValidToken(t *testing.T) {
	t.Parallel()

	store := newFakeUserStore()
	_, err := store.CreateUser(context.Background(), "alice", "hash", 2000)
	require.NoError(t, err)

	tokens := newTestTokenService("test-secret", time.Hour)
	srv := authProtectedServer(t, tokens, store)

	token, err := tokens.Issue("alice")
	require.NoError(t, err)

	resp := doAuthedRequest(t, srv.URL, "Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	t.Parallel()

	srv := authProtectedServer(t, newTestTokenService("test-secret", time.Hour), newFakeUserStore())

	resp := doAuthedRequest(t, srv.URL, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
}

func TestRequireAuth_BadScheme(t *testing.T) {
	t.Parallel()

	srv := authProtectedServer(t, newTestTokenService("test-secret", time.Hour), newFakeUserStore())

	resp := doAuthedRequest(t, srv.URL, "Basic abc123")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	t.Parallel()

	srv := authProtectedServer(t, newTestTokenService("test-secret", time.Hour), newFakeUserStore())

	resp := doAuthedRequest(t, srv.URL, "Bearer not.a.token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// A cryptographically valid token whose subject no longer exists must not
// resolve to an identity.
func TestRequireAuth_DeletedUser(t *testing.T) {
	t.Parallel()

	store := newFakeUserStore()
	_, err := store.CreateUser(context.Background(), "alice", "hash", 2000)
	require.NoError(t, err)

	tokens := newTestTokenService("test-secret", time.Hour)
	srv := authProtectedServer(t, tokens, store)

	token, err := tokens.Issue("alice")
	require.NoError(t, err)

	resp := doAuthedRequest(t, srv.URL, "Bearer "+token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	store.delete("alice")

	resp = doAuthedRequest(t, srv.URL, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
}
