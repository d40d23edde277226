package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/Spok95/face-rating-bot/internal/models"
)

// RatingsHeader — заголовок выгрузки, совпадает с колонками таблицы ratings.
var RatingsHeader = []string{"id", "image_id", "rating", "participant_identifier", "timestamp"}

const (
	CSVFilename      = "face_ratings_export.csv"
	ValidCSVFilename = "face_ratings_valid_export.csv"
)

// WriteRatingsCSV пишет записи журнала в CSV с заголовком.
func WriteRatingsCSV(w io.Writer, rs []models.Rating) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RatingsHeader); err != nil {
		return err
	}
	for _, r := range rs {
		if err := cw.Write(ratingRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteValidCSV — то же, но только настоящие оценки (без пропусков и жалоб).
func WriteValidCSV(w io.Writer, rs []models.Rating) error {
	return WriteRatingsCSV(w, models.ValidOnly(rs))
}

func ratingRecord(r models.Rating) []string {
	return []string{
		r.ID,
		r.ImageID,
		FormatRating(r.Rating),
		r.Participant,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// FormatRating — оценка без лишних нулей: 7.5, 8, -1.
func FormatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
