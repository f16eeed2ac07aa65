package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueToken(secret, subject string, ttl time.Duration) (string, error) {
	claims := &jwt.StandardClaims{Subject: subject, ExpiresAt: time.Now().Add(ttl).Unix()}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func echoToken() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(TokenFromContext(r.Context())))
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	token, err := issueToken("s3cret", "cashier-1", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	Middleware("s3cret")(echoToken()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, token, rec.Body.String())
}

func TestMiddleware_RejectsBadSignature(t *testing.T) {
	token, err := issueToken("other", "cashier-1", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	Middleware("s3cret")(echoToken()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_RejectsExpiredAndMissing(t *testing.T) {
	expired, err := issueToken("s3cret", "cashier-1", -time.Minute)
	require.NoError(t, err)

	for _, header := range []string{"", "Bearer " + expired} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()

		Middleware("s3cret")(echoToken()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestMiddleware_DisabledStillForwards(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer opaque")
	rec := httptest.NewRecorder()

	Middleware("")(echoToken()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "opaque", rec.Body.String())
}

func TestForward(t *testing.T) {
	out := httptest.NewRequest(http.MethodPost, "http://inventory/api", nil)
	out = out.WithContext(WithToken(out.Context(), "abc"))

	Forward(out)

	assert.Equal(t, "Bearer abc", out.Header.Get("Authorization"))
}
