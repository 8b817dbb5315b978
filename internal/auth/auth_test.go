package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testJWTService() *JWTService {
	return NewJWTService(&JWTConfig{
		SecretKey:           []byte("test-secret"),
		AccessTokenDuration: time.Hour,
		Issuer:              "UTMTrack-Backend",
	})
}

func TestJWTService(t *testing.T) {
	svc := testJWTService()

	t.Run("round trip", func(t *testing.T) {
		token, expiresAt, err := svc.GenerateAccessToken("admin")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, RoleAdmin, claims.Role)
	})

	t.Run("expired", func(t *testing.T) {
		old := testJWTService()
		old.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := old.GenerateAccessToken("admin")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(&JWTConfig{SecretKey: []byte("other"), AccessTokenDuration: time.Hour, Issuer: "UTMTrack-Backend"})
		token, _, err := other.GenerateAccessToken("admin")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("bearer extraction", func(t *testing.T) {
		assert.Equal(t, "abc", ExtractTokenFromBearer("Bearer abc"))
		assert.Empty(t, ExtractTokenFromBearer("Basic abc"))
		assert.Empty(t, ExtractTokenFromBearer("Bearer "))
	})
}

func TestPasswordService(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)

	hash, err := svc.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, svc.VerifyPassword(hash, "correct horse"))
	assert.Error(t, svc.VerifyPassword(hash, "wrong horse"))
	assert.ErrorIs(t, svc.VerifyPassword("", "correct horse"), ErrInvalidPassword)

	_, err = svc.HashPassword("short")
	assert.Error(t, err)
}

func TestMiddleware_RequireAdmin(t *testing.T) {
	jwtSvc := testJWTService()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, _ := GetUsernameFromContext(r.Context())
		_, _ = w.Write([]byte(username))
	})
	token, _, err := jwtSvc.GenerateAccessToken("admin")
	require.NoError(t, err)

	tests := []struct {
		name    string
		enabled bool
		header  string
		code    int
	}{
		{"disabled lets everything through", false, "", http.StatusOK},
		{"missing header", true, "", http.StatusUnauthorized},
		{"malformed header", true, "Token " + token, http.StatusUnauthorized},
		{"invalid token", true, "Bearer garbage", http.StatusUnauthorized},
		{"valid token", true, "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMiddleware(jwtSvc, tt.enabled, zap.NewNop()).RequireAdmin(ok)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/utm-links", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHandlers_Token(t *testing.T) {
	passwords := NewPasswordServiceWithCost(bcrypt.MinCost)
	hash, err := passwords.HashPassword("s3cret-pass")
	require.NoError(t, err)
	jwtSvc := testJWTService()

	call := func(h *Handlers, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Token(rec, req)
		return rec
	}

	h := NewHandlers(true, "admin", hash, jwtSvc, passwords, zap.NewNop())

	t.Run("valid credentials", func(t *testing.T) {
		rec := call(h, `{"username":"admin","password":"s3cret-pass"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Bearer", resp.TokenType)
		_, err := jwtSvc.ValidateToken(resp.AccessToken)
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(h, `{"username":"admin","password":"nope-nope"}`).Code)
	})

	t.Run("wrong username", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(h, `{"username":"root","password":"s3cret-pass"}`).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, call(h, `{`).Code)
		assert.Equal(t, http.StatusBadRequest, call(h, `{"username":"admin"}`).Code)
	})

	t.Run("disabled", func(t *testing.T) {
		off := NewHandlers(false, "admin", hash, jwtSvc, passwords, zap.NewNop())
		assert.Equal(t, http.StatusNotFound, call(off, `{"username":"admin","password":"s3cret-pass"}`).Code)
	})
}
