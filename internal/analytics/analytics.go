// Package analytics собирает сводки по журналу оценок для админской панели и выгрузок.
// Запросы к базе живут в internal/db, здесь — производные правила поверх них.
package analytics

import (
	"context"
	"database/sql"
	"math"
	"sort"

	"github.com/Spok95/face-rating-bot/internal/db"
	"github.com/Spok95/face-rating-bot/internal/models"
)

const (
	DefaultTopN              = 3
	DefaultMinValid          = 2
	DefaultControversyMinCnt = 3
)

const meanEpsilon = 1e-9

type Reason string

const (
	ReasonMaxMean Reason = "max_mean"
	ReasonMinMean Reason = "min_mean"
	ReasonFlags   Reason = "flags"
)

// Suspect — кандидат на ручную проверку, не автоматический бан.
type Suspect struct {
	User    models.UserStats
	Reasons []Reason
}

// SuspiciousUsers отмечает участников, чья средняя совпадает с глобальным
// максимумом или минимумом средних, либо у кого жалоб больше половины записей.
// Участники без настоящих оценок в сравнении средних не участвуют.
func SuspiciousUsers(users []models.UserStats) []Suspect {
	hi, lo := math.Inf(-1), math.Inf(1)
	haveMean := false
	for _, u := range users {
		if u.Mean == nil {
			continue
		}
		haveMean = true
		hi = math.Max(hi, *u.Mean)
		lo = math.Min(lo, *u.Mean)
	}

	out := make([]Suspect, 0)
	for _, u := range users {
		var reasons []Reason
		if haveMean && u.Mean != nil {
			if math.Abs(*u.Mean-hi) < meanEpsilon {
				reasons = append(reasons, ReasonMaxMean)
			}
			if math.Abs(*u.Mean-lo) < meanEpsilon {
				reasons = append(reasons, ReasonMinMean)
			}
		}
		if u.Total > 0 && u.Flags*2 > u.Total {
			reasons = append(reasons, ReasonFlags)
		}
		if len(reasons) > 0 {
			out = append(out, Suspect{User: u, Reasons: reasons})
		}
	}
	return out
}

// Controversial — картинки с разбросом оценок, минимум minValid настоящих оценок
// (но не меньше двух). Самые спорные сверху, при равенстве — по image_id.
func Controversial(stats []models.ImageStats, minValid int) []models.ImageStats {
	if minValid < 2 {
		minValid = 2
	}
	out := make([]models.ImageStats, 0)
	for _, s := range stats {
		if _, ok := s.Controversy(); ok && s.Valid >= minValid {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, _ := out[i].Controversy()
		cj, _ := out[j].Controversy()
		if ci != cj {
			return ci > cj
		}
		return out[i].ImageID < out[j].ImageID
	})
	return out
}

// Engine — точка входа для панели: все запросы читают таблицу заново.
type Engine struct {
	db *sql.DB
}

func NewEngine(database *sql.DB) *Engine { return &Engine{db: database} }

func (e *Engine) ImageStatistics(ctx context.Context) ([]models.ImageStats, error) {
	return db.ImageStatistics(ctx, e.db)
}

func (e *Engine) UserStatistics(ctx context.Context) ([]models.UserStats, error) {
	return db.UserStatistics(ctx, e.db)
}

func (e *Engine) TopAndBottom(ctx context.Context, n, minValid int) (top, bottom []models.RankedImage, err error) {
	return db.TopAndBottomImages(ctx, e.db, n, minValid)
}

func (e *Engine) SuspiciousUsers(ctx context.Context) ([]Suspect, error) {
	users, err := db.UserStatistics(ctx, e.db)
	if err != nil {
		return nil, err
	}
	return SuspiciousUsers(users), nil
}

func (e *Engine) Overview(ctx context.Context) (models.Overview, error) {
	return db.OverviewMetrics(ctx, e.db)
}

func (e *Engine) Flagged(ctx context.Context) ([]string, error) {
	return db.FlaggedImageIDs(ctx, e.db)
}

func (e *Engine) Controversial(ctx context.Context, minValid int) ([]models.ImageStats, error) {
	stats, err := db.ImageStatistics(ctx, e.db)
	if err != nil {
		return nil, err
	}
	return Controversial(stats, minValid), nil
}

// Report — всё сразу, для выгрузки и /stats.
type Report struct {
	Overview      models.Overview
	Images        []models.ImageStats
	Users         []models.UserStats
	Top           []models.RankedImage
	Bottom        []models.RankedImage
	Suspicious    []Suspect
	Flagged       []string
	Controversial []models.ImageStats
}

func (e *Engine) Report(ctx context.Context) (*Report, error) {
	var (
		r   Report
		err error
	)
	if r.Overview, err = db.OverviewMetrics(ctx, e.db); err != nil {
		return nil, err
	}
	if r.Images, err = db.ImageStatistics(ctx, e.db); err != nil {
		return nil, err
	}
	if r.Users, err = db.UserStatistics(ctx, e.db); err != nil {
		return nil, err
	}
	if r.Top, r.Bottom, err = db.TopAndBottomImages(ctx, e.db, DefaultTopN, DefaultMinValid); err != nil {
		return nil, err
	}
	if r.Flagged, err = db.FlaggedImageIDs(ctx, e.db); err != nil {
		return nil, err
	}
	r.Suspicious = SuspiciousUsers(r.Users)
	r.Controversial = Controversial(r.Images, DefaultControversyMinCnt)
	return &r, nil
}
