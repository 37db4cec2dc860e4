package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/draw"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/db"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/metrics"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/repository"
)

// ErrInvalidUserID is returned for missing or non-positive user ids.
var ErrInvalidUserID = errors.New("invalid user id")

// SpinResult is the outcome of a successful daily spin.
type SpinResult struct {
	Item  model.CatalogItem
	User  *model.User
	Entry *model.HistoryEntry
}

// SpinService runs the daily case spin.
type SpinService struct {
	pool        *db.Pool
	userRepo    *repository.UserRepository
	catalogRepo *repository.CatalogRepository
	historyRepo *repository.HistoryRepository
	window      time.Duration
	rng         draw.Random
	now         func() time.Time
	metrics     *metrics.Metrics
}

// SpinOption customizes a SpinService.
type SpinOption func(*SpinService)

// WithRandom sets the random source used for draws.
func WithRandom(rng draw.Random) SpinOption {
	return func(s *SpinService) { s.rng = rng }
}

// WithClock sets the clock used for cooldown checks and timestamps.
func WithClock(now func() time.Time) SpinOption {
	return func(s *SpinService) { s.now = now }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) SpinOption {
	return func(s *SpinService) { s.metrics = m }
}

// NewSpinService creates a new SpinService instance.
func NewSpinService(
	pool *db.Pool,
	userRepo *repository.UserRepository,
	catalogRepo *repository.CatalogRepository,
	historyRepo *repository.HistoryRepository,
	window time.Duration,
	opts ...SpinOption,
) *SpinService {
	s := &SpinService{
		pool:        pool,
		userRepo:    userRepo,
		catalogRepo: catalogRepo,
		historyRepo: historyRepo,
		window:      window,
		rng:         draw.Default,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spin draws a reward for the user and applies it.
//
// The user row is locked for the whole transaction, so two concurrent spins
// for one user serialize and the second one sees the first one's timestamp.
// Either everything (reward, timestamp, history row) commits or nothing does.
func (s *SpinService) Spin(ctx context.Context, userID int64) (*SpinResult, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	var result *SpinResult
	err := s.pool.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		users := s.userRepo.WithTx(tx)

		user, err := users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if e := CheckEligible(user.LastDrawAt, now, s.window); !e.Eligible {
			return &CooldownError{Remaining: e.Remaining}
		}

		items, err := s.catalogRepo.WithTx(tx).ListActive(ctx)
		if err != nil {
			return err
		}

		item, err := draw.Draw(items, s.rng)
		if err != nil {
			return err
		}

		reward, err := PlanReward(item)
		if err != nil {
			return err
		}

		updated, err := users.ApplyReward(ctx, userID, reward, now)
		if err != nil {
			return err
		}

		entry, err := s.historyRepo.WithTx(tx).Append(ctx, userID, item.ID, now)
		if err != nil {
			return err
		}

		result = &SpinResult{Item: item, User: updated, Entry: entry}
		return nil
	})

	s.record(userID, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SpinService) record(userID int64, result *SpinResult, err error) {
	var cooldown *CooldownError
	switch {
	case err == nil:
		s.metrics.RecordSpin(metrics.OutcomeWon)
		s.metrics.RecordReward(string(result.Item.PayoutKind), result.Item.Rarity)
		log.Info().
			Int64("user_id", userID).
			Int64("item_id", result.Item.ID).
			Str("type", string(result.Item.PayoutKind)).
			Str("rarity", result.Item.Rarity).
			Msg("Daily case opened")
	case errors.As(err, &cooldown):
		s.metrics.RecordSpin(metrics.OutcomeCooldown)
	case errors.Is(err, repository.ErrUserNotFound):
		s.metrics.RecordSpin(metrics.OutcomeNotFound)
	case errors.Is(err, draw.ErrEmptyCatalog), errors.Is(err, draw.ErrInvalidWeights), errors.Is(err, ErrInvalidPayout):
		s.metrics.RecordSpin(metrics.OutcomeError)
		log.Error().Err(err).Int64("user_id", userID).Msg("Case catalog is misconfigured")
	default:
		s.metrics.RecordSpin(metrics.OutcomeError)
		log.Error().Err(err).Int64("user_id", userID).Msg("Daily case spin failed")
	}
}
