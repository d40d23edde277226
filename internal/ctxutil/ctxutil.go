package ctxutil

import (
	"context"
	"time"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keyChatID key = iota
	keyParticipant
	keyOpName
)

// WithChatID /ChatID — чат Telegram, из которого пришёл запрос
func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, keyChatID, chatID)
}

func ChatID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(keyChatID).(int64)
	return id, ok
}

// WithParticipant /Participant — идентификатор участника, которым он представился
func WithParticipant(ctx context.Context, participant string) context.Context {
	return context.WithValue(ctx, keyParticipant, participant)
}

func Participant(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(keyParticipant).(string)
	return p, ok && p != ""
}

// WithOp /Op — имя операции (для логов и Sentry)
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyOpName).(string)
	return s, ok
}

var DefaultDBTimeout = 5 * time.Second

// WithDBTimeout — стандартный таймаут на одну операцию с БД.
// Если у родителя дедлайн ближе — берём остаток.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		if remain := time.Until(dl); remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
