package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Spok95/face-rating-bot/internal/app"
	"github.com/Spok95/face-rating-bot/internal/backupclient"
	"github.com/Spok95/face-rating-bot/internal/bot/handlers"
	"github.com/Spok95/face-rating-bot/internal/catalog"
	"github.com/Spok95/face-rating-bot/internal/config"
	"github.com/Spok95/face-rating-bot/internal/db"
	"github.com/Spok95/face-rating-bot/internal/jobs"
	"github.com/Spok95/face-rating-bot/internal/logging"
	"github.com/Spok95/face-rating-bot/internal/observability"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить бота, /healthz и /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireBot(); err != nil {
		return err
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		return err
	}
	defer lg.Closer()
	log := lg.Sugar

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		log.Warnw("sentry init failed", "err", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Errorw("db connect failed", "err", err)
		return err
	}
	defer database.Close()

	// без актуальной схемы не стартуем
	v, err := db.Migrate(ctx, database)
	if err != nil {
		observability.CaptureErr(err)
		log.Errorw("migration failed", "err", err)
		return err
	}
	log.Infow("schema ready", "version", v)

	dir := catalog.NewDir(cfg.ImageDir)
	images := catalog.NewCached(dir, cfg.CatalogTTL)
	if ids, err := images.ListImageIDs(ctx); err != nil {
		log.Warnw("image catalog unavailable", "dir", cfg.ImageDir, "err", err)
	} else {
		log.Infow("image catalog loaded", "dir", cfg.ImageDir, "images", len(ids))
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Errorw("telegram init failed", "err", err)
		return err
	}
	bot.Debug = cfg.Env != "prod" && cfg.LogLevel == "debug"
	log.Infow("bot started", "username", bot.Self.UserName, "version", version)

	app.StartHTTP(ctx, cfg.HTTPAddr, database, lg.Named("http"))

	runner := jobs.New(ctx, lg.Named("jobs"))
	runner.Every(cfg.StatsInterval, "ledger_gauges", jobs.LedgerGauges(database))

	sessions := handlers.NewSessions()
	botLog := lg.Named("bot")
	rater := handlers.NewRater(bot, database, images, dir, sessions, botLog)
	console := handlers.NewConsole(bot, database, sessions, handlers.ConsoleConfig{
		Password: cfg.DashboardPassword,
		IsAdmin:  adminCheck(cfg),
		Backup:   backupclient.New(cfg.BackupURL),
		Catalog:  images,
		Location: cfg.Location,
	}, botLog)
	dispatcher := app.New(bot, rater, console, sessions, botLog)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	var wg sync.WaitGroup
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case upd, ok := <-updates:
			if !ok {
				break loop
			}
			wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer wg.Done()
				dispatcher.HandleUpdate(ctx, upd)
			}(upd)
		}
	}

	log.Infow("shutting down")
	bot.StopReceivingUpdates()
	waitTimeout(&wg, 10*time.Second)
	runner.Wait()
	return nil
}

// adminCheck — без ADMIN_IDS чистка доступна любому, кто открыл панель.
func adminCheck(cfg *config.Config) func(int64) bool {
	if len(cfg.AdminIDs) == 0 {
		return nil
	}
	return cfg.IsAdmin
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
	}
}
