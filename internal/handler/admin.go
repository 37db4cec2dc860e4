// Package handler provides the HTTP API handlers and the Telegram admin
// command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/service"
)

const adminCommandTimeout = 30 * time.Second

// CatalogRefresher drops the cached catalog listing.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// AdminHandler handles admin-only Telegram commands.
// Stats and Sync may be nil when the game server is not configured.
type AdminHandler struct {
	Catalog   CatalogLister
	History   HistoryLister
	Refresher CatalogRefresher
	Stats     StatsReader
	Sync      Syncer
}

// HandleSync handles the /sync command.
func (h *AdminHandler) HandleSync(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), adminCommandTimeout)
	defer cancel()

	if sender := c.Sender(); sender != nil {
		log.Info().
			Int64("admin_id", sender.ID).
			Str("operation", "sync").
			Msg("Admin operation executed")
	}
	return c.Reply(h.syncReply(ctx))
}

// HandleItems handles the /items command.
func (h *AdminHandler) HandleItems(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), adminCommandTimeout)
	defer cancel()
	return c.Reply(h.itemsReply(ctx))
}

// HandleRefresh handles the /refresh command.
func (h *AdminHandler) HandleRefresh(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), adminCommandTimeout)
	defer cancel()
	return c.Reply(h.refreshReply(ctx))
}

// HandleStats handles the /stats command.
func (h *AdminHandler) HandleStats(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), adminCommandTimeout)
	defer cancel()
	return c.Reply(h.statsReply(ctx))
}

// HandleHistory handles the /history command.
// Format: /history <user_id>
func (h *AdminHandler) HandleHistory(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), adminCommandTimeout)
	defer cancel()
	return c.Reply(h.historyReply(ctx, c.Args()))
}

func (h *AdminHandler) syncReply(ctx context.Context) string {
	if h.Sync == nil {
		return "❌ База игрового сервера не настроена"
	}

	synced, err := h.Sync.Sync(ctx)
	if err != nil {
		return fmt.Sprintf("⚠️ Синхронизация прервана\n\nОбновлено игроков: %d", synced)
	}
	return fmt.Sprintf("✅ Синхронизация завершена\n\nОбновлено игроков: %d", synced)
}

func (h *AdminHandler) itemsReply(ctx context.Context) string {
	items, err := h.Catalog.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list case items for admin")
		return "❌ Не удалось загрузить предметы"
	}
	if len(items) == 0 {
		return "📦 Активных предметов нет"
	}

	var total float64
	for _, it := range items {
		total += it.Weight
	}

	var sb strings.Builder
	sb.WriteString("📦 Активные предметы\n")
	for _, it := range items {
		share := 0.0
		if total > 0 {
			share = it.Weight / total * 100
		}
		fmt.Fprintf(&sb, "\n#%d %s [%s] %s %s, шанс %g (%.2f%%)",
			it.ID, it.Name, it.Rarity, it.PayoutKind, it.PayoutValue, it.Weight, share)
	}
	return sb.String()
}

func (h *AdminHandler) refreshReply(ctx context.Context) string {
	if h.Refresher == nil {
		return "📦 Кэш каталога не используется"
	}
	if err := h.Refresher.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to drop catalog cache")
		return "❌ Не удалось сбросить кэш каталога"
	}
	return "✅ Кэш каталога сброшен"
}

func (h *AdminHandler) statsReply(ctx context.Context) string {
	if h.Stats == nil {
		return "❌ База игрового сервера не настроена"
	}

	stats, err := h.Stats.ServerStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read server stats for admin")
		return "❌ Не удалось получить статистику сервера"
	}
	return formatStats(stats)
}

func (h *AdminHandler) historyReply(ctx context.Context, args []string) string {
	if len(args) < 1 {
		return "❌ Использование: /history <user_id>"
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || userID <= 0 {
		return "❌ Неверный ID пользователя"
	}

	history, err := h.History.ListFor(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUserID) {
			return "❌ Неверный ID пользователя"
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to read case history for admin")
		return "❌ Не удалось загрузить историю"
	}
	if len(history) == 0 {
		return fmt.Sprintf("📜 У пользователя %d нет открытых кейсов", userID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 История пользователя %d\n", userID)
	for _, v := range history {
		fmt.Fprintf(&sb, "\n%s  %s [%s] %s", v.WonAt.UTC().Format("2006-01-02 15:04"), v.ItemName, v.Rarity, v.Value)
	}
	return sb.String()
}

func formatStats(s *model.ServerStats) string {
	return fmt.Sprintf(
		"🎮 Сервер %s\n\n"+
			"👥 Игроки: %d/%d\n"+
			"🗺 Карта: %s\n"+
			"⚔️ CT %d : %d T",
		s.ServerIP, s.PlayersOnline, s.MaxPlayers, s.CurrentMap, s.CTScore, s.TScore,
	)
}
