package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/service"
)

// Spinner runs the daily case spin.
type Spinner interface {
	Spin(ctx context.Context, userID int64) (*service.SpinResult, error)
}

// CatalogLister lists active case items.
type CatalogLister interface {
	ListActive(ctx context.Context) ([]model.CatalogItem, error)
}

// HistoryLister lists a user's past wins.
type HistoryLister interface {
	ListFor(ctx context.Context, userID int64) ([]model.HistoryView, error)
}

// ProfileReader reads user profiles.
type ProfileReader interface {
	GetProfile(ctx context.Context, steamID string) (*model.User, error)
}

// StatsReader reads live game server stats.
type StatsReader interface {
	ServerStats(ctx context.Context) (*model.ServerStats, error)
}

// Syncer mirrors game server players into user accounts.
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

// HealthChecker pings the database.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HTTPHandler serves the public JSON API.
// Stats and Sync are nil when the game server is not configured.
type HTTPHandler struct {
	Spins    Spinner
	Catalog  CatalogLister
	History  HistoryLister
	Profiles ProfileReader
	Stats    StatsReader
	Sync     Syncer
	Health   HealthChecker
}

type spinRequest struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
}

// RegisterRoutes registers the API routes. adminToken guards the sync
// endpoint when non-empty.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine, adminToken string) {
	router.GET("/healthz", h.Healthz)

	api := router.Group("/api")
	api.GET("/cases/items", h.ListItems)
	api.POST("/cases/spin", h.Spin)
	api.GET("/cases/history", h.ListHistory)
	api.GET("/users/:steam_id", h.GetProfile)
	api.GET("/server/stats", h.ServerStats)

	admin := api.Group("/admin", AdminToken(adminToken))
	admin.POST("/sync", h.SyncPlayers)
}

// ListItems handles GET /api/cases/items.
func (h *HTTPHandler) ListItems(c *gin.Context) {
	items, err := h.Catalog.ListActive(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Spin handles POST /api/cases/spin.
func (h *HTTPHandler) Spin(c *gin.Context) {
	var req spinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, service.ErrInvalidUserID)
		return
	}

	result, err := h.Spins.Spin(c.Request.Context(), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": result.Item})
}

// ListHistory handles GET /api/cases/history?user_id=.
func (h *HTTPHandler) ListHistory(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(c, service.ErrInvalidUserID)
		return
	}

	history, err := h.History.ListFor(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// GetProfile handles GET /api/users/:steam_id.
func (h *HTTPHandler) GetProfile(c *gin.Context) {
	user, err := h.Profiles.GetProfile(c.Request.Context(), c.Param("steam_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ServerStats handles GET /api/server/stats.
func (h *HTTPHandler) ServerStats(c *gin.Context) {
	if h.Stats == nil {
		writeError(c, errGameServerDisabled)
		return
	}

	stats, err := h.Stats.ServerStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SyncPlayers handles POST /api/admin/sync.
func (h *HTTPHandler) SyncPlayers(c *gin.Context) {
	if h.Sync == nil {
		writeError(c, errGameServerDisabled)
		return
	}

	synced, err := h.Sync.Sync(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Int("synced", synced).Str("request_id", requestID(c)).Msg("Sync request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          "Sync failed",
			"kind":           KindStoreError,
			"synced_players": synced,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Sync completed",
		"synced_players": synced,
	})
}

// Healthz handles GET /healthz.
func (h *HTTPHandler) Healthz(c *gin.Context) {
	if err := h.Health.HealthCheck(c.Request.Context()); err != nil {
		log.Warn().Err(err).Msg("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
