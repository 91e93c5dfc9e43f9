package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/surdiana/authd/internal/model"
)

// RoleService manages the role catalog.
type RoleService struct {
	roles  RoleStore
	logger *zap.Logger
}

func NewRoleService(roles RoleStore, logger *zap.Logger) *RoleService {
	return &RoleService{roles: roles, logger: logger}
}

// RoleInput is one role definition to create or update.
type RoleInput struct {
	Role        string
	Description string
}

// Create inserts the given roles. The batch is not transactional; the first
// duplicate aborts it with ErrConflict and earlier inserts stand.
func (s *RoleService) Create(ctx context.Context, inputs []RoleInput) error {
	for _, in := range inputs {
		role := &model.Role{Role: in.Role, Description: in.Description}
		if err := s.roles.Create(ctx, role); err != nil {
			return err
		}
		s.logger.Info("role created", zap.String("role", in.Role))
	}
	return nil
}

func (s *RoleService) List(ctx context.Context) ([]model.Role, error) {
	return s.roles.GetAll(ctx)
}

func (s *RoleService) Update(ctx context.Context, id uuid.UUID, in RoleInput) error {
	fields := map[string]interface{}{
		"role":        in.Role,
		"description": in.Description,
	}
	return s.roles.UpdateFields(ctx, id, fields)
}

func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.roles.Delete(ctx, id)
}
