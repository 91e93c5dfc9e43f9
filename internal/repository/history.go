package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/internal/model"
	"github.com/surdiana/authd/pkg/retry"
)

type HistoryRepository struct {
	db     *gorm.DB
	policy retry.Policy
	logger *zap.Logger
}

func NewHistoryRepository(db *gorm.DB, policy retry.Policy, logger *zap.Logger) *HistoryRepository {
	policy.Retryable = apperrors.IsRetryable
	return &HistoryRepository{db: db, policy: policy, logger: logger}
}

// Create appends an audit row.
func (r *HistoryRepository) Create(ctx context.Context, entry *model.LoginHistory) error {
	return retry.Do(ctx, r.policy, func() error {
		if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
			return r.fail("create history entry", err)
		}
		return nil
	})
}

// Page returns one page of a user's history for the given month, newest first.
func (r *HistoryRepository) Page(ctx context.Context, userID uuid.UUID, pageNum, pageItems, year int, month time.Month) ([]model.LoginHistory, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	var entries []model.LoginHistory
	err := retry.Do(ctx, r.policy, func() error {
		result := r.db.WithContext(ctx).
			Where("user_id = ? AND login_date >= ? AND login_date < ?", userID, from, to).
			Order("login_date DESC").
			Limit(pageItems).
			Offset((pageNum - 1) * pageItems).
			Find(&entries)
		if result.Error != nil {
			return r.fail("page history", result.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkTotpFailed flips the TOTP outcome flag on the rows recorded for the
// request, for audit correlation of failed second-factor checks.
func (r *HistoryRepository) MarkTotpFailed(ctx context.Context, requestID string) error {
	return retry.Do(ctx, r.policy, func() error {
		result := r.db.WithContext(ctx).
			Model(&model.LoginHistory{}).
			Where("request_id = ?", requestID).
			Update("totp_status", false)
		if result.Error != nil {
			return r.fail("mark totp failed", result.Error)
		}
		return nil
	})
}

func (r *HistoryRepository) fail(op string, err error) error {
	classified := classify(err)
	if errors.Is(classified, apperrors.ErrStoreUnavailable) {
		r.logger.Warn("credential store call failed",
			zap.String("op", op),
			zap.Error(err),
		)
	}
	return classified
}
