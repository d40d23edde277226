package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Spok95/face-rating-bot/internal/models"
	"github.com/google/uuid"
)

const ratingColumns = `id, image_id, rating, participant_identifier, "timestamp"`

// SaveRating — добавляет одну запись журнала: новый UUID, текущее время.
// Значение оценки не проверяется: принимаются и -1/-2, проверка — забота интерфейса.
func SaveRating(ctx context.Context, database *sql.DB, imageID string, rating float64, participant string) (models.Rating, error) {
	r := models.Rating{
		ID:          uuid.NewString(),
		ImageID:     imageID,
		Rating:      rating,
		Participant: participant,
		// Postgres хранит микросекунды — обрезаем, чтобы возвращаемое совпадало с сохранённым.
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := InsertRating(ctx, database, r); err != nil {
		return models.Rating{}, err
	}
	return r, nil
}

// InsertRating — вставка полностью заполненной записи (импорт, тесты).
func InsertRating(ctx context.Context, database *sql.DB, r models.Rating) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	_, err := database.ExecContext(ctx, `
		INSERT INTO ratings (`+ratingColumns+`)
		VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.ImageID, r.Rating, r.Participant, r.Timestamp,
	)
	return storageErr("save rating", err)
}

// RatedImageIDs — картинки, по которым у участника есть хоть одна запись
// (оценка, пропуск или жалоба). Без повторов, по алфавиту.
func RatedImageIDs(ctx context.Context, database *sql.DB, participant string) ([]string, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT DISTINCT image_id
		FROM ratings
		WHERE participant_identifier = $1
		ORDER BY image_id`, participant)
	if err != nil {
		return nil, storageErr("rated images", err)
	}
	defer rows.Close()
	return scanStrings(rows, "rated images")
}

// AllRatings — весь журнал, свежие сверху.
func AllRatings(ctx context.Context, database *sql.DB) ([]models.Rating, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT `+ratingColumns+`
		FROM ratings
		ORDER BY "timestamp" DESC, id DESC`)
	if err != nil {
		return nil, storageErr("all ratings", err)
	}
	defer rows.Close()

	out := make([]models.Rating, 0)
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.ID, &r.ImageID, &r.Rating, &r.Participant, &r.Timestamp); err != nil {
			return nil, storageErr("all ratings", err)
		}
		out = append(out, r)
	}
	return out, storageErr("all ratings", rows.Err())
}

// FlaggedImageIDs — картинки, на которые пожаловались хотя бы раз.
func FlaggedImageIDs(ctx context.Context, database *sql.DB) ([]string, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT DISTINCT image_id
		FROM ratings
		WHERE rating = $1
		ORDER BY image_id`, models.RatingFlag)
	if err != nil {
		return nil, storageErr("flagged images", err)
	}
	defer rows.Close()
	return scanStrings(rows, "flagged images")
}

// UndoLastRating — удаляет ровно одну, самую свежую запись участника.
// При равных timestamp удаляется запись с большим id. found == false, если записей нет.
func UndoLastRating(ctx context.Context, database *sql.DB, participant string) (models.Rating, bool, error) {
	var r models.Rating
	err := database.QueryRowContext(ctx, `
		DELETE FROM ratings
		WHERE id = (
			SELECT id FROM ratings
			WHERE participant_identifier = $1
			ORDER BY "timestamp" DESC, id DESC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING `+ratingColumns, participant,
	).Scan(&r.ID, &r.ImageID, &r.Rating, &r.Participant, &r.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Rating{}, false, nil
	}
	if err != nil {
		return models.Rating{}, false, storageErr("undo last rating", err)
	}
	return r, true, nil
}

// CleanupParticipants — удаляет все записи участников, чей идентификатор
// равен pattern (exact, с учётом регистра) или содержит его без учёта регистра.
// Ничего не нашли — (0, 0) без ошибки.
func CleanupParticipants(ctx context.Context, database *sql.DB, pattern string, exact bool) (models.CleanupResult, error) {
	if strings.TrimSpace(pattern) == "" {
		return models.CleanupResult{}, ErrEmptyPattern
	}
	where := `strpos(lower(participant_identifier), lower($1)) > 0`
	if exact {
		where = `participant_identifier = $1`
	}

	tx, err := database.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return models.CleanupResult{}, storageErr("cleanup", err)
	}
	defer func() { _ = tx.Rollback() }()

	var res models.CleanupResult
	if err := tx.QueryRowContext(ctx,
		`SELECT count(DISTINCT participant_identifier) FROM ratings WHERE `+where, pattern,
	).Scan(&res.Participants); err != nil {
		return models.CleanupResult{}, storageErr("cleanup", err)
	}
	if res.Participants == 0 {
		return models.CleanupResult{}, nil
	}

	out, err := tx.ExecContext(ctx, `DELETE FROM ratings WHERE `+where, pattern)
	if err != nil {
		return models.CleanupResult{}, storageErr("cleanup", err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return models.CleanupResult{}, storageErr("cleanup", err)
	}
	res.Rows = int(n)

	if err := tx.Commit(); err != nil {
		return models.CleanupResult{}, storageErr("cleanup", err)
	}
	return res, nil
}

// ListParticipants — все участники: сколько записей, первая и последняя активность.
func ListParticipants(ctx context.Context, database *sql.DB) ([]models.Participant, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT participant_identifier,
		       COUNT(*)         AS total_ratings,
		       MIN("timestamp") AS first_rating,
		       MAX("timestamp") AS last_rating
		FROM ratings
		GROUP BY participant_identifier
		ORDER BY first_rating DESC, participant_identifier`)
	if err != nil {
		return nil, storageErr("list participants", err)
	}
	defer rows.Close()

	out := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.Identifier, &p.Total, &p.First, &p.Last); err != nil {
			return nil, storageErr("list participants", err)
		}
		out = append(out, p)
	}
	return out, storageErr("list participants", rows.Err())
}

func scanStrings(rows *sql.Rows, op string) ([]string, error) {
	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, storageErr(op, err)
		}
		out = append(out, s)
	}
	return out, storageErr(op, rows.Err())
}
