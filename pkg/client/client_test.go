package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestToken creates a JWT with the claim structure
// AuthUserMiddleware expects
func createTestToken(t *testing.T, ja *jwtauth.JWTAuth, userID string, extra ExtraClaims) string {
	claims := map[string]interface{}{
		"sub":     userID,
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
		"extra_claims": map[string]interface{}{
			"email": extra.Email,
			"roles": extra.Roles,
		},
	}

	_, tokenString, err := ja.Encode(claims)
	require.NoError(t, err)
	return tokenString
}

func authStack(ja *jwtauth.JWTAuth, next http.Handler) http.Handler {
	return Verifier(ja)(jwtauth.Authenticator(ja)(AuthUserMiddleware(next)))
}

func TestAuthUserMiddleware(t *testing.T) {
	ja := jwtauth.New("HS256", []byte("test-jwt-secret-key"), nil)

	var captured *AuthUser
	handler := authStack(ja, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = r.Context().Value(AuthUserKey).(*AuthUser)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("ValidToken", func(t *testing.T) {
		captured = nil
		userID := uuid.New().String()
		token := createTestToken(t, ja, userID, ExtraClaims{
			Email: "user@example.org",
			Roles: []string{"provider", "trustee"},
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
		assert.Equal(t, userID, captured.UserId)
		assert.Equal(t, userID, captured.UserUuid.String())
		assert.Equal(t, "user@example.org", captured.ExtraClaims.Email)
		assert.Equal(t, []string{"provider", "trustee"}, captured.ExtraClaims.Roles)
	})

	t.Run("TokenFromCookie", func(t *testing.T) {
		captured = nil
		userID := uuid.New().String()
		token := createTestToken(t, ja, userID, ExtraClaims{})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: ACCESS_TOKEN_NAME, Value: token})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
		assert.Equal(t, userID, captured.UserId)
	})

	t.Run("MissingToken", func(t *testing.T) {
		captured = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, captured)
	})

	t.Run("NonUUIDSubject", func(t *testing.T) {
		captured = nil
		token := createTestToken(t, ja, "not-a-uuid", ExtraClaims{})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, captured)
	})
}

func TestHasRole(t *testing.T) {
	user := &AuthUser{ExtraClaims: ExtraClaims{Roles: []string{"provider"}}}

	assert.True(t, HasRole(user, "provider"))
	assert.False(t, HasRole(user, "admin"))
	assert.False(t, HasRole(nil, "provider"))
}
