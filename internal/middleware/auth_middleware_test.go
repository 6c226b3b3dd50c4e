package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/smarttransit/seat-reservation-backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJWTService() *jwt.Service {
	return jwt.NewService(
		"test-access-secret-key-123456789",
		"test-refresh-secret-key-123456789",
		time.Hour,
		24*time.Hour,
	)
}

func setupTestRouter() (*gin.Engine, *logrus.Logger, *test.Hook) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()
	router := gin.New()
	router.Use(RequestID())
	return router, logger, hook
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_Success(t *testing.T) {
	jwtService := setupTestJWTService()
	router, logger, _ := setupTestRouter()

	userID := uuid.New()
	token, err := jwtService.GenerateAccessToken(userID, "ana@example.com", []string{"passenger"})
	require.NoError(t, err)

	router.GET("/protected", AuthMiddleware(jwtService, logger), func(c *gin.Context) {
		id, ok := CurrentUserID(c)
		require.True(t, ok)
		userCtx, _ := GetUserContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "email": userCtx.Email})
	})

	w := serve(router, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
	assert.Contains(t, w.Body.String(), "ana@example.com")
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	jwtService := setupTestJWTService()

	expiredService := jwt.NewService("test-access-secret-key-123456789", "test-refresh-secret-key-123456789", -time.Minute, time.Hour)
	expired, err := expiredService.GenerateAccessToken(uuid.New(), "ana@example.com", nil)
	require.NoError(t, err)

	wrongService := jwt.NewService("wrong-secret-key", "wrong-refresh-secret", time.Hour, time.Hour)
	wrongSecret, err := wrongService.GenerateAccessToken(uuid.New(), "ana@example.com", nil)
	require.NoError(t, err)

	refresh, err := jwtService.GenerateRefreshToken(uuid.New(), "ana@example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "MISSING_AUTH_HEADER"},
		{"basic auth", "Basic dXNlcjpwYXNz", "INVALID_AUTH_FORMAT"},
		{"empty bearer", "Bearer   ", "INVALID_AUTH_FORMAT"},
		{"garbage", "Bearer not.a.token", "INVALID_TOKEN"},
		{"expired", "Bearer " + expired, "TOKEN_EXPIRED"},
		{"wrong secret", "Bearer " + wrongSecret, "INVALID_TOKEN"},
		{"refresh token", "Bearer " + refresh, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, logger, hook := setupTestRouter()
			router.GET("/protected", AuthMiddleware(jwtService, logger), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
			})

			w := serve(router, tt.header)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
			assert.NotContains(t, w.Body.String(), "should not reach here")
			require.NotNil(t, hook.LastEntry())
			assert.Contains(t, hook.LastEntry().Message, "AUTH FAILED")
		})
	}
}

func TestRequireRole(t *testing.T) {
	jwtService := setupTestJWTService()

	tests := []struct {
		name   string
		roles  []string
		status int
	}{
		{"admin allowed", []string{"passenger", "admin"}, http.StatusOK},
		{"passenger forbidden", []string{"passenger"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, logger, _ := setupTestRouter()
			router.GET("/protected", AuthMiddleware(jwtService, logger), RequireRole("admin"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			token, err := jwtService.GenerateAccessToken(uuid.New(), "ana@example.com", tt.roles)
			require.NoError(t, err)

			w := serve(router, "Bearer "+token)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("without auth middleware", func(t *testing.T) {
		router, _, _ := setupTestRouter()
		router.GET("/protected", RequireRole("admin"), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := serve(router, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "MISSING_USER_CONTEXT")
	})
}

func TestGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetUserContext(c)
	assert.False(t, ok)
	_, ok = CurrentUserID(c)
	assert.False(t, ok)

	c.Set(UserContextKey, "not a user context")
	_, ok = GetUserContext(c)
	assert.False(t, ok)

	expected := UserContext{UserID: uuid.New(), Email: "ana@example.com", Roles: []string{"passenger"}}
	c.Set(UserContextKey, expected)
	got, ok := GetUserContext(c)
	assert.True(t, ok)
	assert.Equal(t, expected, got)
	assert.True(t, got.HasRole("passenger"))
	assert.False(t, got.HasRole("admin"))
}

func TestRequestID(t *testing.T) {
	router, _, _ := setupTestRouter()
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/id", nil))
		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/id", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc-123", w.Body.String())
	})
}

func TestRequestLogger(t *testing.T) {
	router, logger, hook := setupTestRouter()
	router.Use(RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	tests := []struct {
		path  string
		level logrus.Level
	}{
		{"/ok", logrus.InfoLevel},
		{"/missing", logrus.WarnLevel},
		{"/boom", logrus.ErrorLevel},
	}
	for _, tt := range tests {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", tt.path+"?x=1", nil))
		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, tt.level, entry.Level, tt.path)
		assert.Equal(t, tt.path, entry.Data["path"])
		assert.Equal(t, "x=1", entry.Data["query"])
		assert.NotEmpty(t, entry.Data["request_id"])
	}
}
