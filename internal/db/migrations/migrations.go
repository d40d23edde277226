// Package migrations хранит версии схемы журнала оценок.
// SQL-миграции встроены через embed, пересчёт шкалы — Go-миграция (версия 2).
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// RescaleVersion — версия, на которой старые оценки 1–100 переводятся в 1.0–10.0.
const RescaleVersion int64 = 2

// Go возвращает Go-миграции для goose.Provider.
func Go() []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(RescaleVersion, &goose.GoFunc{RunTx: rescaleLegacyUp}, nil),
	}
}

// rescaleLegacyUp переводит колонку rating из integer (1–100) в double precision (1.0–10.0).
// Положительные значения делятся на 10 с округлением до одного знака, -1/-2 не трогаем.
// Признак старой схемы — тип колонки, а не значения: на уже переведённой таблице ничего не делаем,
// любой другой тип — ошибка, таблицу не трогаем.
func rescaleLegacyUp(ctx context.Context, tx *sql.Tx) error {
	dataType, err := ratingColumnType(ctx, tx)
	if err != nil {
		return err
	}
	switch {
	case dataType == "double precision":
		return nil
	case !isIntegerType(dataType):
		return fmt.Errorf("unexpected rating column type %q", dataType)
	}
	_, err = tx.ExecContext(ctx, `
		ALTER TABLE ratings
		ALTER COLUMN rating TYPE DOUBLE PRECISION
		USING (CASE WHEN rating > 0 THEN round(rating / 10.0, 1) ELSE rating END)::double precision
	`)
	if err != nil {
		return fmt.Errorf("rescale ratings: %w", err)
	}
	return nil
}

func ratingColumnType(ctx context.Context, tx *sql.Tx) (string, error) {
	var dataType string
	err := tx.QueryRowContext(ctx, `
		SELECT data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name = 'ratings'
		  AND column_name = 'rating'
	`).Scan(&dataType)
	if err != nil {
		return "", fmt.Errorf("read rating column type: %w", err)
	}
	return dataType, nil
}

func isIntegerType(dataType string) bool {
	switch dataType {
	case "integer", "smallint", "bigint":
		return true
	}
	return false
}
