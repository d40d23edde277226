package models

import "time"

// ImageStats — агрегаты по одной картинке. Mean/Min/Max == nil, если настоящих оценок нет.
type ImageStats struct {
	ImageID string   `db:"image_id"`
	Total   int      `db:"total_ratings"`
	Valid   int      `db:"valid_ratings"`
	Skips   int      `db:"skips"`
	Flags   int      `db:"flags"`
	Mean    *float64 `db:"avg_rating"`
	Min     *float64 `db:"min_rating"`
	Max     *float64 `db:"max_rating"`
}

// Controversy — разброс (max − min) настоящих оценок. ok == false, если их меньше двух.
func (s ImageStats) Controversy() (float64, bool) {
	if s.Valid < 2 || s.Min == nil || s.Max == nil {
		return 0, false
	}
	return *s.Max - *s.Min, true
}

// UserStats — агрегаты по одному участнику.
type UserStats struct {
	Participant string    `db:"participant_identifier"`
	Total       int       `db:"total_submissions"`
	Valid       int       `db:"valid_ratings"`
	Skips       int       `db:"skips"`
	Flags       int       `db:"flags"`
	Mean        *float64  `db:"avg_rating"`
	First       time.Time `db:"first_rating"`
	Last        time.Time `db:"last_rating"`
}

// RankedImage — строка рейтинга популярности.
type RankedImage struct {
	ImageID string  `db:"image_id"`
	Mean    float64 `db:"avg_rating"`
	Valid   int     `db:"valid_ratings"`
}

// Overview — сводка по всему журналу.
// StdDev — выборочное стандартное отклонение (n−1), nil при < 2 настоящих оценок.
type Overview struct {
	Total  int
	Valid  int
	Skips  int
	Flags  int
	Mean   *float64
	StdDev *float64
}

// Participant — краткая карточка участника для админского списка.
type Participant struct {
	Identifier string    `db:"participant_identifier"`
	Total      int       `db:"total_ratings"`
	First      time.Time `db:"first_rating"`
	Last       time.Time `db:"last_rating"`
}

// CleanupResult — сколько участников и строк удалено.
type CleanupResult struct {
	Participants int
	Rows         int
}
