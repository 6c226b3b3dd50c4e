package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
	"github.com/smarttransit/seat-reservation-backend/internal/services"
	"github.com/smarttransit/seat-reservation-backend/internal/utils"
)

// AuthOperations runs the email verification flow
type AuthOperations interface {
	Register(ctx context.Context, req models.RegisterRequest, client services.ClientInfo) (*models.VerificationStarted, error)
	Resend(ctx context.Context, req models.ResendRequest, client services.ClientInfo) (*models.VerificationStarted, error)
	Verify(ctx context.Context, req models.VerifyRequest) (*models.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth   AuthOperations
	logger *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth AuthOperations, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "", "email and first_name are required")
		return
	}

	started, err := h.auth.Register(c.Request.Context(), req, clientInfo(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, started)
}

// Resend handles POST /api/v1/auth/resend
func (h *AuthHandler) Resend(c *gin.Context) {
	var req models.ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "session_id", "session_id is required")
		return
	}

	started, err := h.auth.Resend(c.Request.Context(), req, clientInfo(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, started)
}

// Verify handles POST /api/v1/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "", "session_id and code are required")
		return
	}

	tokens, err := h.auth.Verify(c.Request.Context(), req)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "refresh_token", "refresh_token is required")
		return
	}

	tokens, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": tokens.AccessToken,
		"token_type":   tokens.TokenType,
		"expires_in":   tokens.ExpiresIn,
	})
}

func clientInfo(c *gin.Context) services.ClientInfo {
	return services.ClientInfo{
		IP:        utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
}
