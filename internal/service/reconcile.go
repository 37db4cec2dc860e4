package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/metrics"
)

// PlayerSource lists players from the game server.
type PlayerSource interface {
	ListPlayers(ctx context.Context) ([]model.Player, error)
	// TracksAvatars reports whether players carry their own avatar URL.
	TracksAvatars() bool
}

// UserMirror upserts mirrored player fields keyed by Steam ID.
type UserMirror interface {
	UpsertMirrored(ctx context.Context, p model.Player, avatar string, overwriteAvatar bool) (*model.User, error)
}

// ReconcileService mirrors game server players into the user table.
type ReconcileService struct {
	source            PlayerSource
	mirror            UserMirror
	placeholderAvatar string
	metrics           *metrics.Metrics
}

// NewReconcileService creates a new ReconcileService instance.
func NewReconcileService(source PlayerSource, mirror UserMirror, placeholderAvatar string, m *metrics.Metrics) *ReconcileService {
	return &ReconcileService{
		source:            source,
		mirror:            mirror,
		placeholderAvatar: placeholderAvatar,
		metrics:           m,
	}
}

// Sync upserts every player into the user table, last write wins.
// Each row commits on its own; when a row fails, Sync stops and returns
// the number of rows already written together with the error.
// Players with a negative balance cannot be stored and are skipped.
func (s *ReconcileService) Sync(ctx context.Context) (int, error) {
	start := time.Now()

	players, err := s.source.ListPlayers(ctx)
	if err != nil {
		s.metrics.RecordSync(0, true)
		return 0, fmt.Errorf("failed to list players: %w", err)
	}

	withAvatars := s.source.TracksAvatars()
	synced, skipped := 0, 0
	for _, p := range players {
		if p.Balance < 0 {
			skipped++
			log.Warn().
				Str("steam_id", p.SteamID).
				Int64("balance", p.Balance).
				Msg("Skipping player with negative balance")
			continue
		}

		avatar, overwrite := s.placeholderAvatar, false
		if withAvatars && p.AvatarURL != "" {
			avatar, overwrite = p.AvatarURL, true
		}

		if _, err := s.mirror.UpsertMirrored(ctx, p, avatar, overwrite); err != nil {
			s.metrics.RecordSync(synced, true)
			log.Error().Err(err).
				Str("steam_id", p.SteamID).
				Int("synced", synced).
				Msg("Player sync stopped")
			return synced, err
		}
		synced++
	}

	s.metrics.RecordSync(synced, false)
	log.Info().
		Int("synced", synced).
		Int("skipped", skipped).
		Dur("elapsed", time.Since(start)).
		Msg("Player sync completed")
	return synced, nil
}
