package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/surdiana/authd/internal/constants"
	"github.com/surdiana/authd/internal/model"
)

// HistoryService serves paginated login audit trails.
type HistoryService struct {
	history HistoryStore
	logger  *zap.Logger
}

func NewHistoryService(history HistoryStore, logger *zap.Logger) *HistoryService {
	return &HistoryService{history: history, logger: logger}
}

// Page returns one page of the user's history for the given month, newest
// first. Out-of-range pagination values are clamped rather than rejected.
func (s *HistoryService) Page(ctx context.Context, userID uuid.UUID, pageNum, pageItems, year int, month time.Month) ([]model.LoginHistory, error) {
	if pageNum < constants.MinPageNum {
		pageNum = constants.DefaultPageNum
	}
	if pageItems < constants.MinPageItems {
		pageItems = constants.DefaultPageItems
	}
	if pageItems > constants.MaxPageItems {
		pageItems = constants.MaxPageItems
	}
	return s.history.Page(ctx, userID, pageNum, pageItems, year, month)
}
