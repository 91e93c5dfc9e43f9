package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surdiana/authd/internal/constants"
	"github.com/surdiana/authd/internal/dto"
	"github.com/surdiana/authd/internal/middleware"
	"github.com/surdiana/authd/internal/service"
)

type AuthHandler struct {
	sessions *service.SessionService
	logger   *zap.Logger
}

func NewAuthHandler(sessions *service.SessionService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: logger}
}

// Register creates a local account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	if err := h.sessions.Register(c.Request.Context(), req.Login, req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, constants.MsgResponse(constants.MsgCreated))
}

// Login runs the password step of the two-step login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	result, err := h.sessions.Authenticate(c.Request.Context(), req.Login, req.Password, c.Request.UserAgent())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := dto.LoginResponse{
		RequestID:  result.RequestID,
		TotpActive: result.TotpActive,
	}
	if result.Tokens != nil {
		resp.AccessToken = result.Tokens.AccessToken
		resp.RefreshToken = result.Tokens.RefreshToken
		resp.RequiredFields = result.Tokens.RequiredFields
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh re-mints a token pair for the refresh token holder.
func (h *AuthHandler) Refresh(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, constants.MsgResponse(constants.MsgUnauthorized))
		return
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), claims, c.Param("user_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.TokenResponse{
		AccessToken:    pair.AccessToken,
		RefreshToken:   pair.RefreshToken,
		RequiredFields: pair.RequiredFields,
	})
}

// Logout revokes the current session, or all of the user's sessions when
// all_devices=true.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, constants.MsgResponse(constants.MsgUnauthorized))
		return
	}

	allDevices := c.Query("all_devices") == "true"
	if err := h.sessions.Logout(c.Request.Context(), claims, c.Param("user_id"), allDevices); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, constants.MsgResponse(constants.MsgOK))
}
