package service

import (
	"context"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/repository"
)

// HistoryService reads the case history ledger.
type HistoryService struct {
	historyRepo *repository.HistoryRepository
	limit       int
}

// NewHistoryService creates a new HistoryService instance.
func NewHistoryService(historyRepo *repository.HistoryRepository, limit int) *HistoryService {
	return &HistoryService{historyRepo: historyRepo, limit: limit}
}

// ListFor returns the user's most recent wins, newest first.
func (s *HistoryService) ListFor(ctx context.Context, userID int64) ([]model.HistoryView, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	return s.historyRepo.ListFor(ctx, userID, s.limit)
}
