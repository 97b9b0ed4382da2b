package http

import (
	"net/http"
	"strings"
	"time"

	"campuslive/internal/core/domain"
	"campuslive/internal/core/services"
	"campuslive/pkg/errors"
	"campuslive/pkg/validation"

	"github.com/gin-gonic/gin"
)

// AuthHandler issues the tokens that gate the relay. The role claim inside
// the token decides whether a connection may take the broadcaster seat.
type AuthHandler struct {
	authService    services.AuthService
	broadcasters   map[string]bool
	accessTokenTTL time.Duration
}

func NewAuthHandler(authService services.AuthService, broadcasters []string, accessTokenTTL time.Duration) *AuthHandler {
	allowed := make(map[string]bool, len(broadcasters))
	for _, name := range broadcasters {
		allowed[strings.ToLower(name)] = true
	}
	return &AuthHandler{
		authService:    authService,
		broadcasters:   allowed,
		accessTokenTTL: accessTokenTTL,
	}
}

func (h *AuthHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/login", h.Login)
		api.POST("/refresh", h.RefreshToken)
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=50"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required,max=2048"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := validation.ValidateUsername(req.Username); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	role := domain.RoleViewer
	if h.broadcasters[strings.ToLower(req.Username)] {
		role = domain.RoleBroadcaster
	}

	accessToken, err := h.authService.GenerateToken(req.Username, role)
	if err != nil {
		c.Error(errors.NewInternalError("failed to generate token"))
		return
	}

	refreshToken, err := h.authService.GenerateRefreshToken(req.Username)
	if err != nil {
		c.Error(errors.NewInternalError("failed to generate refresh token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":      req.Username,
		"role":          role,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(h.accessTokenTTL / time.Second),
	})
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	claims, err := h.authService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.Error(errors.NewUnauthorizedError("invalid refresh token"))
		return
	}

	// The role is re-derived from the broadcaster list, not carried over,
	// so revoking someone's seat takes effect on the next refresh.
	role := domain.RoleViewer
	if h.broadcasters[strings.ToLower(claims.Username)] {
		role = domain.RoleBroadcaster
	}

	accessToken, err := h.authService.GenerateToken(claims.Username, role)
	if err != nil {
		c.Error(errors.NewInternalError("failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"role":         role,
		"expires_in":   int(h.accessTokenTTL / time.Second),
	})
}
