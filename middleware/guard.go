package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	goEnroll "github.com/MrEthical07/goEnroll"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by Authenticate.
func IdentityFromContext(ctx context.Context) (*goEnroll.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*goEnroll.Identity)
	return id, ok && id != nil
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *goEnroll.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// Authenticate rejects requests without a valid access token with 401.
func Authenticate(engine *goEnroll.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			id, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, goEnroll.ErrEngineNotReady) {
					status = http.StatusInternalServerError
				}
				writeError(w, status, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin authenticates the request and then rejects non-admin callers
// with 403.
func RequireAdmin(engine *goEnroll.Engine) func(http.Handler) http.Handler {
	authenticate := Authenticate(engine)
	return func(next http.Handler) http.Handler {
		return authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := IdentityFromContext(r.Context())
			if err := goEnroll.Authorize(id, goEnroll.RoleAdmin); err != nil {
				status := http.StatusForbidden
				if errors.Is(err, goEnroll.ErrUnauthorized) {
					status = http.StatusUnauthorized
				}
				writeError(w, status, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
