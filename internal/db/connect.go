package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open — открывает пул к Postgres через pgx и ждёт, пока база ответит.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, storageErr("open", err)
	}
	database.SetMaxOpenConns(10)
	database.SetMaxIdleConns(5)
	database.SetConnMaxIdleTime(5 * time.Minute)

	if err := waitReady(ctx, database, 20*time.Second); err != nil {
		_ = database.Close()
		return nil, storageErr("ping", err)
	}
	return database, nil
}

func waitReady(ctx context.Context, database *sql.DB, limit time.Duration) error {
	dead := time.Now().Add(limit)
	var err error
	for time.Now().Before(dead) {
		if err = database.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return err
}
