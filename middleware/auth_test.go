package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnhub/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "testsecret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseToken(t *testing.T) {
	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"email":   "student@example.com",
		"role":    models.RoleStudent,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	userID, role, err := ParseToken(tokenString, testSecret)

	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
	assert.Equal(t, models.RoleStudent, role)
}

func TestParseTokenWrongSecret(t *testing.T) {
	tokenString := signToken(t, "othersecret", jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	_, _, err := ParseToken(tokenString, testSecret)

	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	_, _, err := ParseToken(tokenString, testSecret)

	assert.Error(t, err)
}

func authTestRouter(extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	chain := append([]gin.HandlerFunc{AuthMiddleware(testSecret)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	router.GET("/protected", chain...)
	return router
}

func TestAuthMiddleware(t *testing.T) {
	router := authTestRouter()
	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 7,
		"role":    models.RoleStudent,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	router := authTestRouter()

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireTeacherRoles(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{models.RoleTeacher, http.StatusOK},
		{models.RoleAdmin, http.StatusOK},
		{models.RoleStudent, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			router := authTestRouter(RequireTeacher())
			tokenString := signToken(t, testSecret, jwt.MapClaims{
				"user_id": 7,
				"role":    tc.role,
				"exp":     time.Now().Add(time.Hour).Unix(),
			})

			req := httptest.NewRequest("GET", "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+tokenString)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
		})
	}
}
