package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/surdiana/authd/internal/constants"
	"github.com/surdiana/authd/internal/dto"
	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/internal/service"
)

type UserHandler struct {
	sessions *service.SessionService
	history  *service.HistoryService
	logger   *zap.Logger
}

func NewUserHandler(sessions *service.SessionService, history *service.HistoryService, logger *zap.Logger) *UserHandler {
	return &UserHandler{sessions: sessions, history: history, logger: logger}
}

func pathUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Get returns the public view of an account.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	user, err := h.sessions.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Role)
	}
	c.JSON(http.StatusOK, dto.UserResponse{
		ID:         user.ID.String(),
		Login:      user.Login,
		Email:      user.Email,
		TotpActive: user.TotpActive,
		Roles:      roles,
	})
}

// Update replaces the account's login and password.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	var req dto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	if err := h.sessions.UpdateCredentials(c.Request.Context(), id, req.Login, req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, constants.MsgResponse(constants.MsgOK))
}

// History returns one month of the user's login audit trail, paginated.
func (h *UserHandler) History(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	now := time.Now().UTC()
	if query.Year == 0 {
		query.Year = now.Year()
	}
	if query.Month == 0 {
		query.Month = int(now.Month())
	}
	if query.PageNum == 0 {
		query.PageNum = constants.DefaultPageNum
	}
	if query.PageItems == 0 {
		query.PageItems = constants.DefaultPageItems
	}

	entries, err := h.history.Page(c.Request.Context(), id, query.PageNum, query.PageItems, query.Year, time.Month(query.Month))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	// A page past the data, or a month with no logins, reads as not found.
	if len(entries) == 0 {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	resp := dto.HistoryPageResponse{
		PageNum:   query.PageNum,
		PageItems: query.PageItems,
		Entries:   make([]dto.HistoryEntryResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, dto.HistoryEntryResponse{
			UserAgent:   entry.UserAgent,
			LoginDate:   entry.LoginDate,
			LoginStatus: entry.LoginStatus,
			ServiceName: entry.ServiceName,
			TotpStatus:  entry.TotpStatus,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Roles lists the user's effective role names.
func (h *UserHandler) Roles(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	names, err := h.sessions.UserRoles(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.UserRolesResponse{Roles: names})
}

// AttachRoles grants roles to the user and revokes their open sessions.
func (h *UserHandler) AttachRoles(c *gin.Context) {
	h.mutateRoles(c, h.sessions.AssignRoles)
}

// DetachRoles removes roles from the user and revokes their open sessions.
func (h *UserHandler) DetachRoles(c *gin.Context) {
	h.mutateRoles(c, h.sessions.RemoveRoles)
}

func (h *UserHandler) mutateRoles(c *gin.Context, apply func(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error) {
	id, ok := pathUserID(c)
	if !ok {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	var req dto.UserRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	roleIDs := make([]uuid.UUID, 0, len(req.Roles))
	for _, raw := range req.Roles {
		roleID, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, h.logger, apperrors.ErrNotFound)
			return
		}
		roleIDs = append(roleIDs, roleID)
	}

	if err := apply(c.Request.Context(), id, roleIDs); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, constants.MsgResponse(constants.MsgOK))
}
