//nolint:noctx // Test file uses http.NewRequest for simplicity
package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prommetrics "github.com/artifactlab/review-scoring/internal/metrics"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/service/access"
	"github.com/artifactlab/review-scoring/pkg/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setupRouter(auth *Auth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), AccessLog(logger.NewNop()))

	router.GET("/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c)})
	})

	api := router.Group("/api", auth.Authenticate())
	api.GET("/me", func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "role": actor.Role})
	})
	api.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func do(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, http.NoBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	auth := NewAuth(testSecret, "", 0)
	router := setupRouter(auth)

	token, err := auth.Sign(7, models.RoleUser, time.Hour)
	require.NoError(t, err)

	w := do(router, "/api/me", token)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["user_id"])
	assert.Equal(t, models.RoleUser, body["role"])
}

func TestAuthenticate_Rejects(t *testing.T) {
	auth := NewAuth(testSecret, "", 0)
	router := setupRouter(auth)

	expired, err := auth.Sign(7, models.RoleUser, -time.Minute)
	require.NoError(t, err)
	system, err := auth.Sign(0, models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	badRole, err := auth.Sign(7, "Superuser", time.Hour)
	require.NoError(t, err)
	otherKey, err := NewAuth("another-secret-of-enough-length", "", 0).Sign(7, models.RoleUser, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "expired", token: expired},
		{name: "system reviewer id", token: system},
		{name: "unknown role", token: badRole},
		{name: "wrong key", token: otherKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, "/api/me", tt.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["timestamp"])
		})
	}
}

func TestParse_UserIDClaim(t *testing.T) {
	auth := NewAuth(testSecret, "", 0)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 12,
		"role":    models.RoleTeamLead,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	actor, err := auth.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, access.Actor{UserID: 12, Role: models.RoleTeamLead}, actor)
}

func TestParse_Issuer(t *testing.T) {
	issuing := NewAuth(testSecret, "reviewscore", 0)
	token, err := issuing.Sign(3, models.RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = issuing.Parse(token)
	assert.NoError(t, err)

	unsigned, err := NewAuth(testSecret, "", 0).Sign(3, models.RoleUser, time.Hour)
	require.NoError(t, err)
	_, err = issuing.Parse(unsigned)
	assert.Error(t, err)
}

func TestRequireAdmin(t *testing.T) {
	auth := NewAuth(testSecret, "", 0)
	router := setupRouter(auth)

	user, err := auth.Sign(7, models.RoleUser, time.Hour)
	require.NoError(t, err)
	admin, err := auth.Sign(1, models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, do(router, "/api/admin", user).Code)
	assert.Equal(t, http.StatusNoContent, do(router, "/api/admin", admin).Code)
}

func TestRequestID(t *testing.T) {
	router := setupRouter(NewAuth(testSecret, "", 0))

	w := do(router, "/open", "")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req, _ := http.NewRequest("GET", "/open", http.NoBody)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Body.String(), "abc-123")
}

func TestAccessLog_RecordsRoutePattern(t *testing.T) {
	router := setupRouter(NewAuth(testSecret, "", 0))
	counter := prommetrics.HTTPRequestsTotal.WithLabelValues("GET", "/open", "200")
	before := testutil.ToFloat64(counter)

	do(router, "/open", "")

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
