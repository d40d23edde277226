package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Spok95/face-rating-bot/internal/observability"
	"go.uber.org/zap"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx context.Context
	log *zap.SugaredLogger
	wg  sync.WaitGroup
}

func New(ctx context.Context, log *zap.SugaredLogger) *Runner {
	return &Runner{ctx: ctx, log: log}
}

// Every — запускает fn сразу и затем каждые interval, пока жив контекст раннера.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		r.run(name, fn)
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

// Wait — дождаться остановки всех задач (после отмены контекста).
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) run(name string, fn Job) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			jobErrors.WithLabelValues(name).Inc()
			observability.CaptureErr(fmt.Errorf("panic in job %s: %v", name, rec))
		}
	}()
	if err := fn(r.ctx); err != nil {
		jobErrors.WithLabelValues(name).Inc()
		if r.ctx.Err() == nil {
			r.log.Warnw("job failed", "job", name, "err", err)
			observability.CaptureErr(err)
		}
	}
	jobRuns.WithLabelValues(name).Inc()
	jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
