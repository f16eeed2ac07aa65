package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// WithToken stores the caller's bearer token so outbound gateway calls can forward it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKey{}, token)
}

// TokenFromContext returns the bearer token stored by the middleware, or "".
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(ctxKey{}).(string)
	return token
}

// Forward sets the Authorization header on an outbound request when the
// request context carries a token.
func Forward(req *http.Request) {
	if token := TokenFromContext(req.Context()); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
