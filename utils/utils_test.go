package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysBetween(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	assert.Equal(t, 0, DaysBetween(day(2024, 7, 1), day(2024, 7, 1)))
	assert.Equal(t, 181, DaysBetween(day(2024, 1, 2), day(2024, 7, 1)))
	assert.Equal(t, 1, DaysBetween(day(2024, 2, 28), day(2024, 2, 29)))
	assert.Equal(t, -3, DaysBetween(day(2024, 7, 4), day(2024, 7, 1)))

	late := time.Date(2024, 6, 30, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(late, day(2024, 7, 1)), "time of day is ignored")
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+15550001111"))
	assert.True(t, ValidatePhone("+1 (555) 000-1111"))
	assert.False(t, ValidatePhone("call me"))
	assert.False(t, ValidatePhone("+0123"))
	assert.Equal(t, "+15550001111", CleanPhone("+1 (555) 000-1111"))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("other", hash))
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	_, err := GenerateToken("u1", "admin", "", 1)
	assert.ErrorIs(t, err, ErrMissingSecret)
	assert.NotEqual(t, GenerateJWTSecret(), GenerateJWTSecret())
}

func authEngine(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AuthMiddleware(secret), RequireRole("admin"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString("userId")})
	})
	return r
}

func call(r *gin.Engine, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddlewareAndRoles(t *testing.T) {
	r := authEngine("secret")

	admin, err := GenerateToken("u1", "admin", "secret", 1)
	require.NoError(t, err)
	analyst, err := GenerateToken("u2", "analyst", "secret", 1)
	require.NoError(t, err)
	forged, err := GenerateToken("u1", "admin", "other-secret", 1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(r, admin))
	assert.Equal(t, http.StatusForbidden, call(r, analyst))
	assert.Equal(t, http.StatusUnauthorized, call(r, forged))
	assert.Equal(t, http.StatusUnauthorized, call(r, ""))
}
