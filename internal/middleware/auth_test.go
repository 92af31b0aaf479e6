package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func authTestRouter(am *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(am.RequireAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"client_id": c.GetString("client_id"),
			"role":      c.GetString("client_role"),
		})
	})
	return router
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	am := NewAuthMiddleware(testSecret)
	token, err := am.GenerateToken("sentinel-dashboard", "operator", time.Hour)
	require.NoError(t, err)

	router := authTestRouter(am)
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sentinel-dashboard")
	assert.Contains(t, w.Body.String(), "operator")
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	router := authTestRouter(NewAuthMiddleware(testSecret))
	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization header required")
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	router := authTestRouter(NewAuthMiddleware(testSecret))

	for _, header := range []string{"Bearer", "Basic abc", "tokenonly", "Bearer "} {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	other := NewAuthMiddleware("different-secret")
	token, err := other.GenerateToken("intruder", "operator", time.Hour)
	require.NoError(t, err)

	router := authTestRouter(NewAuthMiddleware(testSecret))
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token")
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	am := NewAuthMiddleware(testSecret)
	token, err := am.GenerateToken("sentinel-dashboard", "operator", -time.Minute)
	require.NoError(t, err)

	router := authTestRouter(am)
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expired")
}

func TestAuthMiddleware_ValidateToken(t *testing.T) {
	am := NewAuthMiddleware(testSecret)
	token, err := am.GenerateToken("cli", "viewer", time.Hour)
	require.NoError(t, err)

	claims, err := am.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cli", claims.ClientID)
	assert.Equal(t, "viewer", claims.Role)

	_, err = am.ValidateToken("not-a-token")
	assert.Error(t, err)
}
