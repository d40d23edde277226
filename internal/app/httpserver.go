package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Spok95/face-rating-bot/internal/metrics"
	"go.uber.org/zap"
)

type HTTPServer struct {
	srv *http.Server
}

// NewMux — /healthz (пинг БД) и /metrics.
func NewMux(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		metrics.ObserveDBPing(time.Since(t0))
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func StartHTTP(ctx context.Context, addr string, db *sql.DB, log *zap.SugaredLogger) *HTTPServer {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(db),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("http server stopped", "addr", addr, "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	return &HTTPServer{srv: srv}
}
