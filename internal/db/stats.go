package db

import (
	"context"
	"database/sql"

	"github.com/Spok95/face-rating-bot/internal/models"
)

// Валидная оценка — rating > 0, пропуск — -1, жалоба — -2.
// Всё считается заново полным проходом по таблице, кэша агрегатов нет.

// ImageStatistics — агрегаты по каждой картинке, сначала самые «оценённые».
func ImageStatistics(ctx context.Context, database *sql.DB) ([]models.ImageStats, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT image_id,
		       COUNT(*)                                AS total_ratings,
		       COUNT(*) FILTER (WHERE rating > 0)      AS valid_ratings,
		       COUNT(*) FILTER (WHERE rating = -1)     AS skips,
		       COUNT(*) FILTER (WHERE rating = -2)     AS flags,
		       AVG(rating) FILTER (WHERE rating > 0)   AS avg_rating,
		       MIN(rating) FILTER (WHERE rating > 0)   AS min_rating,
		       MAX(rating) FILTER (WHERE rating > 0)   AS max_rating
		FROM ratings
		GROUP BY image_id
		ORDER BY total_ratings DESC, image_id`)
	if err != nil {
		return nil, storageErr("image statistics", err)
	}
	defer rows.Close()

	out := make([]models.ImageStats, 0)
	for rows.Next() {
		var (
			s           models.ImageStats
			avg, lo, hi sql.NullFloat64
		)
		if err := rows.Scan(&s.ImageID, &s.Total, &s.Valid, &s.Skips, &s.Flags, &avg, &lo, &hi); err != nil {
			return nil, storageErr("image statistics", err)
		}
		s.Mean, s.Min, s.Max = floatPtr(avg), floatPtr(lo), floatPtr(hi)
		out = append(out, s)
	}
	return out, storageErr("image statistics", rows.Err())
}

// UserStatistics — агрегаты по каждому участнику, сначала самые активные.
func UserStatistics(ctx context.Context, database *sql.DB) ([]models.UserStats, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT participant_identifier,
		       COUNT(*)                              AS total_submissions,
		       COUNT(*) FILTER (WHERE rating > 0)    AS valid_ratings,
		       COUNT(*) FILTER (WHERE rating = -1)   AS skips,
		       COUNT(*) FILTER (WHERE rating = -2)   AS flags,
		       AVG(rating) FILTER (WHERE rating > 0) AS avg_rating,
		       MIN("timestamp")                      AS first_rating,
		       MAX("timestamp")                      AS last_rating
		FROM ratings
		GROUP BY participant_identifier
		ORDER BY total_submissions DESC, participant_identifier`)
	if err != nil {
		return nil, storageErr("user statistics", err)
	}
	defer rows.Close()

	out := make([]models.UserStats, 0)
	for rows.Next() {
		var (
			u   models.UserStats
			avg sql.NullFloat64
		)
		if err := rows.Scan(&u.Participant, &u.Total, &u.Valid, &u.Skips, &u.Flags, &avg, &u.First, &u.Last); err != nil {
			return nil, storageErr("user statistics", err)
		}
		u.Mean = floatPtr(avg)
		out = append(out, u)
	}
	return out, storageErr("user statistics", rows.Err())
}

// RankedImages — картинки с не менее чем minValid настоящими оценками,
// по убыванию средней; при равенстве — по image_id.
func RankedImages(ctx context.Context, database *sql.DB, minValid int) ([]models.RankedImage, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT image_id,
		       AVG(rating) AS avg_rating,
		       COUNT(*)    AS valid_ratings
		FROM ratings
		WHERE rating > 0
		GROUP BY image_id
		HAVING COUNT(*) >= $1
		ORDER BY avg_rating DESC, image_id`, minValid)
	if err != nil {
		return nil, storageErr("ranked images", err)
	}
	defer rows.Close()

	out := make([]models.RankedImage, 0)
	for rows.Next() {
		var r models.RankedImage
		if err := rows.Scan(&r.ImageID, &r.Mean, &r.Valid); err != nil {
			return nil, storageErr("ranked images", err)
		}
		out = append(out, r)
	}
	return out, storageErr("ranked images", rows.Err())
}

// TopAndBottomImages — n лучших и n худших картинок по средней оценке.
// Оба списка берутся из одного ранжирования, поэтому при >= 2n кандидатах не пересекаются.
func TopAndBottomImages(ctx context.Context, database *sql.DB, n, minValid int) (top, bottom []models.RankedImage, err error) {
	ranked, err := RankedImages(ctx, database, minValid)
	if err != nil {
		return nil, nil, err
	}
	top, bottom = SplitRanked(ranked, n)
	return top, bottom, nil
}

// SplitRanked — голова и перевёрнутый хвост ранжированного списка.
func SplitRanked(ranked []models.RankedImage, n int) (top, bottom []models.RankedImage) {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	top = append(make([]models.RankedImage, 0, n), ranked[:n]...)
	bottom = make([]models.RankedImage, 0, n)
	for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
		bottom = append(bottom, ranked[i])
	}
	return top, bottom
}

// OverviewMetrics — сводка по журналу. StdDev — выборочное (stddev_samp).
func OverviewMetrics(ctx context.Context, database *sql.DB) (models.Overview, error) {
	var (
		o           models.Overview
		mean, stdev sql.NullFloat64
	)
	err := database.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE rating > 0),
		       COUNT(*) FILTER (WHERE rating = -1),
		       COUNT(*) FILTER (WHERE rating = -2),
		       AVG(rating) FILTER (WHERE rating > 0),
		       STDDEV_SAMP(rating) FILTER (WHERE rating > 0)
		FROM ratings`,
	).Scan(&o.Total, &o.Valid, &o.Skips, &o.Flags, &mean, &stdev)
	if err != nil {
		return models.Overview{}, storageErr("overview", err)
	}
	o.Mean, o.StdDev = floatPtr(mean), floatPtr(stdev)
	return o, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
