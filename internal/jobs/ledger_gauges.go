package jobs

import (
	"context"
	"database/sql"

	"github.com/Spok95/face-rating-bot/internal/ctxutil"
	"github.com/Spok95/face-rating-bot/internal/db"
	"github.com/Spok95/face-rating-bot/internal/metrics"
)

// LedgerGauges — обновляет гейджи facebot_ledger_* по сводке журнала.
func LedgerGauges(database *sql.DB) Job {
	return func(ctx context.Context) error {
		ctx, cancel := ctxutil.WithDBTimeout(ctx)
		defer cancel()
		o, err := db.OverviewMetrics(ctx, database)
		if err != nil {
			return err
		}
		metrics.SetLedger(o)
		return nil
	}
}
