// Package bot provides the Telegram admin bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/config"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/handler"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot          *tele.Bot
	cfg          *config.Config
	adminHandler *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config       *config.Config
	AdminHandler *handler.AdminHandler
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:          teleBot,
		cfg:          deps.Config,
		adminHandler: deps.AdminHandler,
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
	// Every command is an admin command
	b.bot.Use(AdminMiddleware(b.cfg))
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleHelp)
	b.bot.Handle("/help", b.handleHelp)
	b.bot.Handle("/sync", b.adminHandler.HandleSync)
	b.bot.Handle("/items", b.adminHandler.HandleItems)
	b.bot.Handle("/refresh", b.adminHandler.HandleRefresh)
	b.bot.Handle("/stats", b.adminHandler.HandleStats)
	b.bot.Handle("/history", b.adminHandler.HandleHistory)
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Reply(helpText)
}

const helpText = "🛠 Команды администратора\n\n" +
	"/sync - синхронизировать игроков с сервера\n" +
	"/items - активные предметы кейса\n" +
	"/refresh - сбросить кэш каталога\n" +
	"/stats - статистика сервера\n" +
	"/history <user_id> - последние выигрыши пользователя"

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting admin bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping admin bot...")
	b.bot.Stop()
}
