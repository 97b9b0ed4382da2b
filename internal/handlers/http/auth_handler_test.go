package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campuslive/internal/core/domain"
	"campuslive/internal/core/services"
	"campuslive/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthRouter(t *testing.T, broadcasters []string) (*gin.Engine, services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := services.NewAuthService("test-secret", 15*time.Minute, 24*time.Hour)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	NewAuthHandler(auth, broadcasters, 15*time.Minute).SetupRoutes(router)
	return router, auth
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestLogin_BroadcasterGetsBroadcasterRole(t *testing.T) {
	router, auth := newAuthRouter(t, []string{"prof-smith"})

	w := postJSON(t, router, "/api/v1/auth/login", `{"username":"prof-smith"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Role         domain.Role `json:"role"`
		AccessToken  string      `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
		ExpiresIn    int         `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.RoleBroadcaster, body.Role)
	assert.Equal(t, int((15 * time.Minute).Seconds()), body.ExpiresIn)

	claims, err := auth.ValidateToken(body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBroadcaster, claims.Role)
	assert.Equal(t, "prof-smith", claims.Username)
}

func TestLogin_UnknownUserGetsViewerRole(t *testing.T) {
	router, auth := newAuthRouter(t, []string{"prof-smith"})

	w := postJSON(t, router, "/api/v1/auth/login", `{"username":"student-1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Role        domain.Role `json:"role"`
		AccessToken string      `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.RoleViewer, body.Role)

	claims, err := auth.ValidateToken(body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, claims.Role)
}

func TestLogin_BroadcasterMatchIsCaseInsensitive(t *testing.T) {
	router, _ := newAuthRouter(t, []string{"Prof-Smith"})

	w := postJSON(t, router, "/api/v1/auth/login", `{"username":"prof-smith"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Role domain.Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.RoleBroadcaster, body.Role)
}

func TestLogin_RejectsInvalidUsername(t *testing.T) {
	router, _ := newAuthRouter(t, nil)

	assert.Equal(t, http.StatusBadRequest, postJSON(t, router, "/api/v1/auth/login", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(t, router, "/api/v1/auth/login", `{"username":"a"}`).Code)
}

func TestRefreshToken_ReissuesAccessToken(t *testing.T) {
	router, auth := newAuthRouter(t, []string{"prof-smith"})

	refresh, err := auth.GenerateRefreshToken("prof-smith")
	require.NoError(t, err)

	w := postJSON(t, router, "/api/v1/auth/refresh", `{"refresh_token":"`+refresh+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Role        domain.Role `json:"role"`
		AccessToken string      `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.RoleBroadcaster, body.Role)

	claims, err := auth.ValidateToken(body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBroadcaster, claims.Role)
}

func TestRefreshToken_RejectsGarbage(t *testing.T) {
	router, _ := newAuthRouter(t, nil)

	w := postJSON(t, router, "/api/v1/auth/refresh", `{"refresh_token":"garbage"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
