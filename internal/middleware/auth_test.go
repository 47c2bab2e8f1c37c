package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"lab-accession-backend/internal/config"
	"lab-accession-backend/internal/middleware"
)

const testSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"

func newRouter(cfg *config.Config, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.AuthMiddleware(cfg))
	router.GET("/test", handler)
	return router
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func serve(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/test", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sign(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return tokenString
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	router := newRouter(&config.Config{JWTSecret: testSecret}, okHandler)

	w := serve(router, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization header")
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	router := newRouter(&config.Config{JWTSecret: testSecret}, okHandler)

	w := serve(router, "Bearer invalid-token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	router := newRouter(&config.Config{JWTSecret: testSecret}, okHandler)

	w := serve(router, "Bearer "+sign(t, jwt.MapClaims{"sub": "op-1"}, "another-secret"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "signature is invalid")
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	router := newRouter(&config.Config{JWTSecret: testSecret}, okHandler)

	w := serve(router, "Bearer "+sign(t, jwt.MapClaims{
		"sub": "op-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, testSecret))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token has expired")
}

func TestAuthMiddleware_MissingSubject(t *testing.T) {
	router := newRouter(&config.Config{JWTSecret: testSecret}, okHandler)

	w := serve(router, "Bearer "+sign(t, jwt.MapClaims{"role": "lab"}, testSecret))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tokenString := sign(t, jwt.MapClaims{"sub": "operator-123"}, testSecret)

	router := newRouter(&config.Config{JWTSecret: testSecret}, func(c *gin.Context) {
		operatorID, exists := c.Get(middleware.OperatorIDKey)
		assert.True(t, exists)
		assert.Equal(t, "operator-123", operatorID)
		assert.Equal(t, tokenString, c.GetString(middleware.TokenKey))
		okHandler(c)
	})

	w := serve(router, "Bearer "+tokenString)

	assert.Equal(t, http.StatusOK, w.Code)
}
