package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surdiana/authd/internal/constants"
	"github.com/surdiana/authd/internal/dto"
	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/internal/service"
)

type TotpHandler struct {
	broker *service.LoginRequestService
	logger *zap.Logger
}

func NewTotpHandler(broker *service.LoginRequestService, logger *zap.Logger) *TotpHandler {
	return &TotpHandler{broker: broker, logger: logger}
}

// respond keeps the historical contract of the second-factor endpoints: an
// unknown request, an expired request and a wrong code all answer 401 with
// the not-found body, indistinguishable from one another. Only the unsynced
// factor gets its own message.
func (h *TotpHandler) respond(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, constants.MsgResponse(constants.MsgNotFound))
		return
	}
	respondError(c, h.logger, err)
}

// Sync provisions a fresh TOTP secret for the pending login and returns the
// otpauth URL.
func (h *TotpHandler) Sync(c *gin.Context) {
	url, err := h.broker.GenerateProvisioningURL(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ProvisioningResponse{URL: url})
}

// Activate confirms the first code against the provisioned secret and turns
// the second factor on.
func (h *TotpHandler) Activate(c *gin.Context) {
	var req dto.TotpCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	pair, err := h.broker.ActivateTotp(c.Request.Context(), c.Param("request_id"), req.Code)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.TokenResponse{
		AccessToken:    pair.AccessToken,
		RefreshToken:   pair.RefreshToken,
		RequiredFields: pair.RequiredFields,
	})
}

// Check finalizes a pending login with a second-factor code.
func (h *TotpHandler) Check(c *gin.Context) {
	var req dto.TotpCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	pair, err := h.broker.CheckTotp(c.Request.Context(), c.Param("request_id"), req.Code)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.TokenResponse{
		AccessToken:    pair.AccessToken,
		RefreshToken:   pair.RefreshToken,
		RequiredFields: pair.RequiredFields,
	})
}
