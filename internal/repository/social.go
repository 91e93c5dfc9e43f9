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

type SocialAccountRepository struct {
	db     *gorm.DB
	policy retry.Policy
	logger *zap.Logger
}

func NewSocialAccountRepository(db *gorm.DB, policy retry.Policy, logger *zap.Logger) *SocialAccountRepository {
	policy.Retryable = apperrors.IsRetryable
	return &SocialAccountRepository{db: db, policy: policy, logger: logger}
}

// Create links a provider identity to a user. The (provider, subject id) pair
// is unique; a duplicate surfaces as ErrConflict.
func (r *SocialAccountRepository) Create(ctx context.Context, account *model.SocialAccount) error {
	return retry.Do(ctx, r.policy, func() error {
		if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
			return r.fail("create social account", err)
		}
		return nil
	})
}

// GetByPair looks up the link for a provider-issued subject id.
func (r *SocialAccountRepository) GetByPair(ctx context.Context, service, socialID string) (*model.SocialAccount, error) {
	var account model.SocialAccount
	err := retry.Do(ctx, r.policy, func() error {
		result := r.db.WithContext(ctx).
			Where("social_service = ? AND social_id = ?", service, socialID).
			First(&account)
		if result.Error != nil {
			return r.fail("get social account", result.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// DeleteByUserAndService unlinks a provider from a user. ErrNotFound when no
// link exists.
func (r *SocialAccountRepository) DeleteByUserAndService(ctx context.Context, userID uuid.UUID, service string) error {
	return retry.Do(ctx, r.policy, func() error {
		result := r.db.WithContext(ctx).
			Where("user_id = ? AND social_service = ?", userID, service).
			Delete(&model.SocialAccount{})
		if result.Error != nil {
			return r.fail("delete social account", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

func (r *SocialAccountRepository) fail(op string, err error) error {
	classified := classify(err)
	if errors.Is(classified, apperrors.ErrStoreUnavailable) {
		r.logger.Warn("credential store call failed",
			zap.String("op", op),
			zap.Error(err),
		)
	}
	return classified
}
