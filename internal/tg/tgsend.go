package tg

import (
	"errors"
	"strings"

	"github.com/Spok95/face-rating-bot/internal/metrics"
	"github.com/Spok95/face-rating-bot/internal/observability"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender — то, что нужно обработчикам от *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Системными считаем: 5xx, 429, таймауты и сетевые обрывы. 400-ки в Sentry не шлём.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	s := err.Error()
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "EOF")
}

func Send(bot Sender, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := bot.Send(msg)
	if err != nil {
		metrics.HandlerErrors.Inc()
		if isSystemErr(err) {
			observability.CaptureErr(err)
		}
	}
	return m, err
}

func SendText(bot Sender, chatID int64, text string) {
	_, _ = Send(bot, tgbotapi.NewMessage(chatID, text))
}

// Answer — ответ на callback, чтобы Telegram снял «часики» с кнопки.
func Answer(bot Sender, callbackID, text string) {
	if _, err := bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil && isSystemErr(err) {
		observability.CaptureErr(err)
	}
}
