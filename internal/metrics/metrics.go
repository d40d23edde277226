package metrics

import (
	"net/http"
	"time"

	"github.com/Spok95/face-rating-bot/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "facebot"

var (
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "updates_total", Help: "Processed telegram updates",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	RatingsSaved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "ratings_saved_total", Help: "Ledger rows written by kind",
	}, []string{"kind"})
	RatingsUndone = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "ratings_undone_total", Help: "Rows removed by undo",
	})
	RatingsCleaned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "ratings_cleaned_total", Help: "Rows removed by admin cleanup",
	})
	ParticipantsExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "participants_exhausted_total", Help: "Sessions that rated the whole catalog",
	})
	LedgerRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "ledger_rows", Help: "Ledger rows by kind (refreshed periodically)",
	}, []string{"kind"})
	LedgerMean = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "ledger_mean_rating", Help: "Mean valid rating over the ledger",
	})
)

func init() {
	prometheus.MustRegister(BotUpdates, HandlerErrors, DBPing,
		RatingsSaved, RatingsUndone, RatingsCleaned, ParticipantsExhausted,
		LedgerRows, LedgerMean)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveSaved(rating float64) { RatingsSaved.WithLabelValues(string(models.KindOf(rating))).Inc() }

// SetLedger — выставить гейджи по свежей сводке.
func SetLedger(o models.Overview) {
	LedgerRows.WithLabelValues("total").Set(float64(o.Total))
	LedgerRows.WithLabelValues(string(models.KindValid)).Set(float64(o.Valid))
	LedgerRows.WithLabelValues(string(models.KindSkip)).Set(float64(o.Skips))
	LedgerRows.WithLabelValues(string(models.KindFlag)).Set(float64(o.Flags))
	if o.Mean != nil {
		LedgerMean.Set(*o.Mean)
	}
}
