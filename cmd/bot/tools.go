package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Spok95/face-rating-bot/internal/analytics"
	"github.com/Spok95/face-rating-bot/internal/bot/handlers"
	"github.com/Spok95/face-rating-bot/internal/config"
	"github.com/Spok95/face-rating-bot/internal/db"
	"github.com/Spok95/face-rating-bot/internal/export"
	"github.com/Spok95/face-rating-bot/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// withDB — общий каркас CLI-команд: конфиг, логгер, подключение, миграция.
func withDB(ctx context.Context, fn func(ctx context.Context, database *sql.DB, log *zap.SugaredLogger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		return err
	}
	defer lg.Closer()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if _, err := db.Migrate(ctx, database); err != nil {
		return err
	}
	return fn(ctx, database, lg.Named("cli"))
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Довести схему БД до актуальной версии",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, database *sql.DB, log *zap.SugaredLogger) error {
				v, err := db.SchemaVersion(ctx, database)
				if err != nil {
					return err
				}
				log.Infow("schema ready", "version", v)
				return nil
			})
		},
	}
}

func exportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Выгрузить журнал оценок в CSV и XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, database *sql.DB, log *zap.SugaredLogger) error {
				return runExport(ctx, database, out, log)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "каталог для файлов выгрузки")
	return cmd
}

func runExport(ctx context.Context, database *sql.DB, out string, log *zap.SugaredLogger) error {
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	rs, err := db.AllRatings(ctx, database)
	if err != nil {
		return err
	}
	engine := analytics.NewEngine(database)
	images, err := engine.ImageStatistics(ctx)
	if err != nil {
		return err
	}
	users, err := engine.UserStatistics(ctx)
	if err != nil {
		return err
	}

	writeFile := func(name string, write func(f *os.File) error) error {
		path := filepath.Join(out, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := write(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Infow("export written", "file", path)
		return nil
	}

	if err := writeFile(export.CSVFilename, func(f *os.File) error { return export.WriteRatingsCSV(f, rs) }); err != nil {
		return err
	}
	if err := writeFile(export.ValidCSVFilename, func(f *os.File) error { return export.WriteValidCSV(f, rs) }); err != nil {
		return err
	}
	wb, err := export.RatingsWorkbook(rs, images, users)
	if err != nil {
		return err
	}
	return writeFile(export.BuildWorkbookFilename(time.Now()), func(f *os.File) error { return wb.Write(f) })
}

func cleanupCommand() *cobra.Command {
	var exact bool
	cmd := &cobra.Command{
		Use:   "cleanup PATTERN",
		Short: "Удалить все записи участников, чей идентификатор совпал с шаблоном",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, database *sql.DB, log *zap.SugaredLogger) error {
				res, err := db.CleanupParticipants(ctx, database, args[0], exact)
				if err != nil {
					return err
				}
				log.Infow("cleanup", "pattern", args[0], "exact", exact, "participants", res.Participants, "rows", res.Rows)
				fmt.Fprintf(cmd.OutOrStdout(), "participants: %d, rows: %d\n", res.Participants, res.Rows)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&exact, "exact", false, "точное совпадение вместо подстроки без учёта регистра")
	return cmd
}

func statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Сводка по журналу оценок",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, database *sql.DB, _ *zap.SugaredLogger) error {
				rep, err := analytics.NewEngine(database).Report(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, handlers.FormatOverview(rep.Overview))
				fmt.Fprintln(w)
				fmt.Fprintln(w, handlers.FormatTopBottom(rep.Top, rep.Bottom))
				fmt.Fprintln(w, handlers.FormatControversial(rep.Controversial, len(rep.Controversial)))
				fmt.Fprintln(w)
				fmt.Fprintln(w, handlers.FormatSuspects(rep.Suspicious))
				fmt.Fprintln(w)
				fmt.Fprintln(w, handlers.FormatFlagged(rep.Flagged))
				return nil
			})
		},
	}
}
