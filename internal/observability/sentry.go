package observability

import (
	"context"
	"errors"
	"time"

	"github.com/Spok95/face-rating-bot/internal/ctxutil"
	"github.com/Spok95/face-rating-bot/internal/db"
	"github.com/getsentry/sentry-go"
)

func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureCtx — то же, но с тегами операции и чата из контекста.
// Отмена контекста ошибкой не считается.
func CaptureCtx(ctx context.Context, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		if op, ok := ctxutil.Op(ctx); ok {
			scope.SetTag("op", op)
		}
		if p, ok := ctxutil.Participant(ctx); ok {
			scope.SetTag("participant", p)
		}
		if errors.Is(err, db.ErrStorage) {
			scope.SetTag("kind", "storage")
		}
		hub.CaptureException(err)
	})
}
