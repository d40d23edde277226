package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spok95/face-rating-bot/internal/bot/handlers"
	"github.com/Spok95/face-rating-bot/internal/bot/menu"
	"github.com/Spok95/face-rating-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/face-rating-bot/internal/ctxutil"
	"github.com/Spok95/face-rating-bot/internal/metrics"
	"github.com/Spok95/face-rating-bot/internal/observability"
	"github.com/Spok95/face-rating-bot/internal/tg"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// App — маршрутизация апдейтов по сценариям. Апдейты одного чата
// обрабатываются строго по очереди (ChatLimiter).
type App struct {
	bot      tg.Sender
	rater    *handlers.Rater
	console  *handlers.Console
	sessions *handlers.Sessions
	limiter  *ChatLimiter
	log      *zap.SugaredLogger
}

func New(bot tg.Sender, rater *handlers.Rater, console *handlers.Console, sessions *handlers.Sessions, log *zap.SugaredLogger) *App {
	return &App{
		bot:      bot,
		rater:    rater,
		console:  console,
		sessions: sessions,
		limiter:  NewChatLimiter(),
		log:      log,
	}
}

// HandleUpdate — точка входа для одного апдейта. Паника внутри обработчика
// не роняет цикл обновлений.
func (a *App) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	chatID := updateChatID(upd)
	if chatID == 0 {
		return
	}
	metrics.BotUpdates.Inc()

	unlock := a.limiter.lock(chatID)
	defer unlock()
	defer func() {
		if rec := recover(); rec != nil {
			metrics.HandlerErrors.Inc()
			a.log.Errorw("panic in handler", "chat", chatID, "panic", rec)
			observability.CaptureErr(fmt.Errorf("panic in handler: %v", rec))
		}
	}()

	ctx = ctxutil.WithChatID(ctx, chatID)
	switch {
	case upd.CallbackQuery != nil:
		a.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		a.handleMessage(ctx, upd.Message)
	}
}

func (a *App) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if strings.HasPrefix(cb.Data, menu.CallbackPrefix) {
		a.rater.HandleCallback(ctx, cb)
		return
	}
	tg.Answer(a.bot, cb.ID, "")
}

func (a *App) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.IsCommand() {
		a.handleCommand(ctx, msg, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if fsmutil.IsCancelText(text) {
		a.sessions.Cancel(chatID)
		tg.SendText(a.bot, chatID, "Сессия сброшена. Начать заново — /start")
		return
	}
	if a.rater.HandleText(ctx, msg) {
		return
	}
	tg.SendText(a.bot, chatID, "⚠️ Не понял сообщение. Используйте /start")
}

func (a *App) handleCommand(ctx context.Context, msg *tgbotapi.Message, cmd, arg string) {
	switch cmd {
	case "start":
		a.rater.HandleStart(ctx, msg)
	case "name":
		a.rater.HandleName(ctx, msg, arg)
	case "undo":
		a.rater.HandleUndo(ctx, msg)
	case "cancel":
		a.sessions.Cancel(msg.Chat.ID)
		tg.SendText(a.bot, msg.Chat.ID, "Сессия сброшена. Начать заново — /start")
	case "dashboard":
		a.console.HandleUnlock(ctx, msg, arg)
	default:
		if handlers.IsCommand(cmd) {
			a.console.Handle(ctx, msg, cmd, arg)
			return
		}
		tg.SendText(a.bot, msg.Chat.ID, "⚠️ Неизвестная команда. Используйте /start")
	}
}

func updateChatID(upd tgbotapi.Update) int64 {
	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID
	case upd.Message != nil && upd.Message.Chat != nil:
		return upd.Message.Chat.ID
	}
	return 0
}
