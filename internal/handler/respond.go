package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/surdiana/authd/internal/constants"
	apperrors "github.com/surdiana/authd/internal/errors"
)

// respondError maps a domain error to its HTTP status and fixed message body.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := apperrors.ToHTTPStatus(err)

	var msg string
	switch {
	case errors.Is(err, apperrors.ErrTotpNotSynced):
		msg = constants.MsgTotpNotSynced
	case errors.Is(err, apperrors.ErrNotFound):
		msg = constants.MsgNotFound
	case errors.Is(err, apperrors.ErrConflict):
		msg = constants.MsgAlreadyExists
	case status == http.StatusUnauthorized:
		msg = constants.MsgUnauthorized
	default:
		msg = apperrors.GetErrorMessage(err)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.JSON(status, constants.MsgResponse(msg))
}

func uuidFromSubject(subject string) (uuid.UUID, error) {
	return uuid.Parse(subject)
}

func respondBindError(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("invalid request payload",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.JSON(http.StatusBadRequest, constants.MsgResponse(err.Error()))
}
