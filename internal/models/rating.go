package models

import "time"

// Специальные значения оценки. Всё, что > 0, — настоящая оценка по шкале 1.0–10.0.
const (
	RatingSkip float64 = -1
	RatingFlag float64 = -2
)

// Границы шкалы (один знак после запятой).
const (
	MinScore = 1.0
	MaxScore = 10.0
)

type RatingKind string

const (
	KindValid RatingKind = "valid"
	KindSkip  RatingKind = "skip"
	KindFlag  RatingKind = "flag"
	KindOther RatingKind = "other"
)

// Rating — одна строка журнала оценок: действие участника над одной картинкой.
type Rating struct {
	ID          string    `db:"id"`
	ImageID     string    `db:"image_id"`
	Rating      float64   `db:"rating"`
	Participant string    `db:"participant_identifier"`
	Timestamp   time.Time `db:"timestamp"`
}

func (r Rating) Kind() RatingKind { return KindOf(r.Rating) }

// KindOf классифицирует значение оценки.
func KindOf(v float64) RatingKind {
	switch {
	case v > 0:
		return KindValid
	case v == RatingSkip:
		return KindSkip
	case v == RatingFlag:
		return KindFlag
	default:
		return KindOther
	}
}

// ValidOnly оставляет только настоящие оценки, порядок сохраняется.
func ValidOnly(rs []Rating) []Rating {
	out := make([]Rating, 0, len(rs))
	for _, r := range rs {
		if r.Kind() == KindValid {
			out = append(out, r)
		}
	}
	return out
}
