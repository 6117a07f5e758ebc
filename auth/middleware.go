package auth

import (
	"net/http"
	"strings"

	"github.com/user/caloriecam-go/apperror"
)

// RequireAuth returns middleware that authenticates each request from its
// bearer token. A valid signature is not enough on its own: the subject is
// looked up in the user store on every request, so a token issued for a
// since-deleted account never resolves to a live identity. The resolved
// user is placed in the request context for downstream handlers.
func RequireAuth(tokens *TokenService, store UserStore) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeChallenge(w, r, apperror.NewAuthError("authorization header is missing", nil))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeChallenge(w, r, apperror.NewAuthError("authorization header format must be Bearer {token}", nil))
				return
			}

			subject, err := tokens.Validate(parts[1])
			if err != nil {
				writeChallenge(w, r, err)
				return
			}

			user, err := store.GetUserByUsername(r.Context(), subject)
			if err != nil {
				if apperror.IsNotFound(err) {
					writeChallenge(w, r, apperror.NewAuthError("could not validate credentials", nil))
					return
				}
				WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContextWithUser(r.Context(), user)))
		})
	}
}

// writeChallenge writes an authentication rejection with the standard
// bearer challenge header.
func writeChallenge(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteError(w, r, err)
}
