package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/draw"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/repository"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/service"
)

// Machine-readable error kinds returned in the "kind" field.
const (
	KindValidation     = "validation_error"
	KindNotFound       = "not_found"
	KindCooldownActive = "cooldown_active"
	KindEmptyCatalog   = "empty_catalog"
	KindInvalidWeights = "invalid_weights"
	KindInvalidPayout  = "invalid_payout"
	KindUnauthorized   = "unauthorized"
	KindUnavailable    = "unavailable"
	KindStoreError     = "store_error"
)

var errGameServerDisabled = errors.New("game server database is not configured")

// writeError maps err to a status and a generic message. Internal error
// text is logged and never sent to the client.
func writeError(c *gin.Context, err error) {
	var cooldown *service.CooldownError

	switch {
	case errors.Is(err, service.ErrInvalidUserID):
		abort(c, http.StatusBadRequest, KindValidation, "User ID required")
	case errors.Is(err, service.ErrInvalidSteamID):
		abort(c, http.StatusBadRequest, KindValidation, "Steam ID required")
	case errors.Is(err, repository.ErrUserNotFound):
		abort(c, http.StatusNotFound, KindNotFound, "User not found")
	case errors.As(err, &cooldown):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":     "Daily limit reached",
			"kind":      KindCooldownActive,
			"time_left": cooldown.TimeLeft(),
		})
	case errors.Is(err, draw.ErrEmptyCatalog):
		abort(c, http.StatusInternalServerError, KindEmptyCatalog, "No active items")
	case errors.Is(err, draw.ErrInvalidWeights):
		abort(c, http.StatusInternalServerError, KindInvalidWeights, "Case is misconfigured")
	case errors.Is(err, service.ErrInvalidPayout):
		abort(c, http.StatusInternalServerError, KindInvalidPayout, "Case is misconfigured")
	case errors.Is(err, errGameServerDisabled):
		abort(c, http.StatusServiceUnavailable, KindUnavailable, "Game server is not configured")
	default:
		log.Error().Err(err).
			Str("request_id", requestID(c)).
			Str("path", c.FullPath()).
			Msg("Request failed")
		abort(c, http.StatusInternalServerError, KindStoreError, "Internal server error")
	}
}

func abort(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "kind": kind})
}
