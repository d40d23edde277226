package fsmutil

import (
	"strings"
	"sync"

	"github.com/Spok95/face-rating-bot/internal/metrics"
	"github.com/Spok95/face-rating-bot/internal/tg"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// pending — защита от повторного запуска «тяжёлых» действий (выгрузка, чистка).
// Ключ — chatID; значение — метка действия ("export", "cleanup").
var pending = struct {
	mu sync.Mutex
	m  map[int64]string
}{
	m: make(map[int64]string),
}

// SetPending помечает чат как занятый действием key.
// false — в чате уже что-то выполняется.
func SetPending(chatID int64, key string) bool {
	pending.mu.Lock()
	defer pending.mu.Unlock()

	if _, ok := pending.m[chatID]; ok {
		return false
	}
	pending.m[chatID] = key
	return true
}

// ClearPending снимает метку, если ключ совпал.
func ClearPending(chatID int64, key string) {
	pending.mu.Lock()
	defer pending.mu.Unlock()

	if cur, ok := pending.m[chatID]; ok && cur == key {
		delete(pending.m, chatID)
	}
}

// DisableMarkup гасит inline-клавиатуру у сообщения, чтобы по старой картинке
// нельзя было нажать ещё раз.
func DisableMarkup(bot tg.Sender, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: make([][]tgbotapi.InlineKeyboardButton, 0)}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, empty)
	if _, err := bot.Request(edit); err != nil {
		metrics.HandlerErrors.Inc()
	}
}

// IsCancelText — «Отмена», "/cancel", "cancel" (регистр и пробелы не важны).
func IsCancelText(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "отмена" || s == "/cancel" || s == "cancel"
}
