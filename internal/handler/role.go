package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/surdiana/authd/internal/constants"
	"github.com/surdiana/authd/internal/dto"
	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/internal/service"
)

type RoleHandler struct {
	roles  *service.RoleService
	logger *zap.Logger
}

func NewRoleHandler(roles *service.RoleService, logger *zap.Logger) *RoleHandler {
	return &RoleHandler{roles: roles, logger: logger}
}

// Create adds one or more roles to the catalog.
func (h *RoleHandler) Create(c *gin.Context) {
	var req dto.RolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	inputs := make([]service.RoleInput, 0, len(req.Roles))
	for _, r := range req.Roles {
		inputs = append(inputs, service.RoleInput{Role: r.Role, Description: r.Description})
	}

	if err := h.roles.Create(c.Request.Context(), inputs); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, constants.MsgResponse(constants.MsgCreated))
}

// List returns the whole role catalog.
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if len(roles) == 0 {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	resp := make([]dto.RoleResponse, 0, len(roles))
	for _, role := range roles {
		resp = append(resp, dto.RoleResponse{
			ID:          role.ID.String(),
			Role:        role.Role,
			Description: role.Description,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Update redefines one role.
func (h *RoleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("role_id"))
	if err != nil {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	var req dto.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	if err := h.roles.Update(c.Request.Context(), id, service.RoleInput{Role: req.Role, Description: req.Description}); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, constants.MsgResponse(constants.MsgOK))
}

// Delete removes one role from the catalog.
func (h *RoleHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("role_id"))
	if err != nil {
		respondError(c, h.logger, apperrors.ErrNotFound)
		return
	}

	if err := h.roles.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, constants.MsgResponse(constants.MsgOK))
}
