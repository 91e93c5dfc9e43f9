package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surdiana/authd/internal/constants"
	"github.com/surdiana/authd/internal/dto"
	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/internal/middleware"
	"github.com/surdiana/authd/internal/service"
	"github.com/surdiana/authd/pkg/social"
)

type SocialHandler struct {
	sessions  *service.SessionService
	providers *social.Registry
	logger    *zap.Logger
}

func NewSocialHandler(sessions *service.SessionService, providers *social.Registry, logger *zap.Logger) *SocialHandler {
	return &SocialHandler{sessions: sessions, providers: providers, logger: logger}
}

// Redirect returns the provider's consent URL. Unknown providers are 404.
func (h *SocialHandler) Redirect(c *gin.Context) {
	provider := c.Param("provider")
	if !h.providers.Known(provider) {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	url, err := h.providers.AuthCodeURL(provider, c.Query("state"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.AuthURLResponse{AuthURL: url})
}

// Login exchanges the provider's code and logs the linked account in,
// provisioning a fresh one for first-time identities.
func (h *SocialHandler) Login(c *gin.Context) {
	provider := c.Param("provider")
	if !h.providers.Known(provider) {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	var req dto.SocialCallbackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	data, err := h.providers.Exchange(c.Request.Context(), provider, req.Code)
	if err != nil {
		h.logger.Warn("provider code exchange failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		c.JSON(http.StatusUnauthorized, constants.MsgResponse(constants.MsgUnauthorized))
		return
	}

	result, err := h.sessions.LoginSocial(c.Request.Context(), data, c.Request.UserAgent())
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

// Unlink removes the caller's link to the provider.
func (h *SocialHandler) Unlink(c *gin.Context) {
	provider := c.Param("provider")
	if !h.providers.Known(provider) {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, constants.MsgResponse(constants.MsgUnauthorized))
		return
	}
	userID, err := uuidFromSubject(claims.Subject)
	if err != nil {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	if err := h.sessions.UnlinkSocial(c.Request.Context(), userID, provider); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, constants.MsgResponse(constants.MsgOK))
}
