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

type UserRepository struct {
	db     *gorm.DB
	policy retry.Policy
	logger *zap.Logger
}

func NewUserRepository(db *gorm.DB, policy retry.Policy, logger *zap.Logger) *UserRepository {
	policy.Retryable = apperrors.IsRetryable
	return &UserRepository{db: db, policy: policy, logger: logger}
}

// Create inserts the user. A login collision surfaces as ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return retry.Do(ctx, r.policy, func() error {
		if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
			return r.fail("create user", err)
		}
		return nil
	})
}

// GetByLogin loads a user and their roles. ErrNotFound when no row matches.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	err := retry.Do(ctx, r.policy, func() error {
		result := r.db.WithContext(ctx).Preload("Roles").Where("login = ?", login).First(&user)
		if result.Error != nil {
			return r.fail("get user by login", result.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := retry.Do(ctx, r.policy, func() error {
		result := r.db.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&user)
		if result.Error != nil {
			return r.fail("get user by id", result.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateFields applies a partial update. ErrConflict on unique violations,
// ErrNotFound when the row does not exist.
func (r *UserRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return retry.Do(ctx, r.policy, func() error {
		result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return r.fail("update user", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// AttachRoles appends roles to the user's role set. Missing user or role ids
// surface as ErrNotFound.
func (r *UserRepository) AttachRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	return retry.Do(ctx, r.policy, func() error {
		return r.mutateRoles(ctx, userID, roleIDs, func(assoc *gorm.Association, roles []model.Role) error {
			values := make([]interface{}, len(roles))
			for i := range roles {
				values[i] = &roles[i]
			}
			return assoc.Append(values...)
		})
	})
}

// DetachRoles removes roles from the user's role set.
func (r *UserRepository) DetachRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	return retry.Do(ctx, r.policy, func() error {
		return r.mutateRoles(ctx, userID, roleIDs, func(assoc *gorm.Association, roles []model.Role) error {
			values := make([]interface{}, len(roles))
			for i := range roles {
				values[i] = &roles[i]
			}
			return assoc.Delete(values...)
		})
	})
}

func (r *UserRepository) mutateRoles(
	ctx context.Context,
	userID uuid.UUID,
	roleIDs []uuid.UUID,
	apply func(assoc *gorm.Association, roles []model.Role) error,
) error {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return r.fail("load user for role change", err)
	}

	var roles []model.Role
	if err := r.db.WithContext(ctx).Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
		return r.fail("load roles for role change", err)
	}
	if len(roles) != len(roleIDs) {
		return apperrors.ErrNotFound
	}

	if err := apply(r.db.WithContext(ctx).Model(&user).Association("Roles"), roles); err != nil {
		return r.fail("change user roles", err)
	}
	return nil
}

// RoleNames returns the user's role names, resolving through the join table.
func (r *UserRepository) RoleNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var names []string
	err := retry.Do(ctx, r.policy, func() error {
		result := r.db.WithContext(ctx).
			Model(&model.Role{}).
			Joins("JOIN user_roles ON user_roles.role_id = roles.id").
			Where("user_roles.user_id = ?", userID).
			Pluck("roles.role", &names)
		if result.Error != nil {
			return r.fail("get user role names", result.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *UserRepository) fail(op string, err error) error {
	classified := classify(err)
	if errors.Is(classified, apperrors.ErrStoreUnavailable) {
		r.logger.Warn("credential store call failed",
			zap.String("op", op),
			zap.Error(err),
		)
	}
	return classified
}
