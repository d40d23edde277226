package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/face-rating-bot/internal/db/migrations"
	"github.com/pressly/goose/v3"
)

// Migrate — доводит схему до актуальной версии и возвращает её номер.
// Отсутствующая таблица создаётся; старая integer-шкала пересчитывается один раз
// (версию хранит goose_db_version). Любая ошибка — фатальна для запуска.
func Migrate(ctx context.Context, database *sql.DB) (int64, error) {
	p, err := newProvider(database)
	if err != nil {
		return 0, err
	}
	if _, err := p.Up(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMigration, err)
	}
	v, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: read version: %v", ErrMigration, err)
	}
	return v, nil
}

// SchemaVersion — текущая версия схемы (0, если миграции ещё не запускались).
func SchemaVersion(ctx context.Context, database *sql.DB) (int64, error) {
	p, err := newProvider(database)
	if err != nil {
		return 0, err
	}
	v, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, storageErr("schema version", err)
	}
	return v, nil
}

func newProvider(database *sql.DB) (*goose.Provider, error) {
	p, err := goose.NewProvider(goose.DialectPostgres, database, migrations.FS,
		goose.WithGoMigrations(migrations.Go()...),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: provider: %v", ErrMigration, err)
	}
	return p, nil
}
