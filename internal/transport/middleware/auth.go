package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/heartmarshall/learnhub-backend/internal/auth"
	"github.com/heartmarshall/learnhub-backend/pkg/ctxutil"
)

type identityResolver interface {
	Resolve(ctx context.Context, token string) (auth.Identity, error)
}

// Auth resolves a bearer token into the caller's identity. Requests without
// a token pass through anonymously; handlers decide whether that is allowed.
func Auth(resolver identityResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity copies a resolved identity into ctx.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	ctx = ctxutil.WithUserID(ctx, id.UserID)
	ctx = ctxutil.WithRole(ctx, id.Role.String())
	return ctxutil.WithAdmin(ctx, id.IsAdmin())
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
