package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgrijalva/jwt-go"
)

// Middleware verifies HS256 bearer tokens signed with secret and stores the raw
// token in the request context. An empty secret disables verification; any
// token present is still forwarded.
func Middleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if secret != "" {
				if err := verify(token, key); err != nil {
					unauthorized(w, err)
					return
				}
			}
			if token != "" {
				r = r.WithContext(WithToken(r.Context(), token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func verify(token string, key []byte) error {
	if token == "" {
		return errors.New("missing bearer token")
	}
	claims := &jwt.StandardClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return errors.New("invalid token")
	}
	return nil
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"code": "UNAUTHORIZED", "error": err.Error()})
}
