package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/internal/model"
	"github.com/surdiana/authd/pkg/retry"
)

type RoleRepository struct {
	db     *gorm.DB
	policy retry.Policy
	logger *zap.Logger
}

func NewRoleRepository(db *gorm.DB, policy retry.Policy, logger *zap.Logger) *RoleRepository {
	policy.Retryable = apperrors.IsRetryable
	return &RoleRepository{db: db, policy: policy, logger: logger}
}

// Create inserts a role. Duplicate names surface as ErrConflict.
func (r *RoleRepository) Create(ctx context.Context, role *model.Role) error {
	return retry.Do(ctx, r.policy, func() error {
		if err := r.db.WithContext(ctx).Create(role).Error; err != nil {
			return r.fail("create role", err)
		}
		return nil
	})
}

func (r *RoleRepository) GetAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := retry.Do(ctx, r.policy, func() error {
		if err := r.db.WithContext(ctx).Order("role").Find(&roles).Error; err != nil {
			return r.fail("list roles", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *RoleRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return retry.Do(ctx, r.policy, func() error {
		result := r.db.WithContext(ctx).Model(&model.Role{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return r.fail("update role", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// Delete removes the role row. ErrNotFound when nothing matched.
func (r *RoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return retry.Do(ctx, r.policy, func() error {
		result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Role{})
		if result.Error != nil {
			return r.fail("delete role", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

func (r *RoleRepository) fail(op string, err error) error {
	classified := classify(err)
	if errors.Is(classified, apperrors.ErrStoreUnavailable) {
		r.logger.Warn("credential store call failed",
			zap.String("op", op),
			zap.Error(err),
		)
	}
	return classified
}
