package handlers

import (
	"bytes"
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/face-rating-bot/internal/analytics"
	"github.com/Spok95/face-rating-bot/internal/backupclient"
	"github.com/Spok95/face-rating-bot/internal/bot/menu"
	"github.com/Spok95/face-rating-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/face-rating-bot/internal/catalog"
	"github.com/Spok95/face-rating-bot/internal/ctxutil"
	"github.com/Spok95/face-rating-bot/internal/db"
	"github.com/Spok95/face-rating-bot/internal/export"
	"github.com/Spok95/face-rating-bot/internal/metrics"
	"github.com/Spok95/face-rating-bot/internal/models"
	"github.com/Spok95/face-rating-bot/internal/observability"
	"github.com/Spok95/face-rating-bot/internal/tg"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const tableLimit = 20

// Console — панель аналитики, доступ по общему паролю (DASHBOARD_PASSWORD).
type Console struct {
	bot      tg.Sender
	db       *sql.DB
	engine   *analytics.Engine
	sessions *Sessions
	password string
	isAdmin  func(int64) bool
	backup   *backupclient.Client
	catalog  catalog.Provider
	loc      *time.Location
	log      *zap.SugaredLogger
}

// ConsoleConfig — настройки панели.
type ConsoleConfig struct {
	Password string
	// IsAdmin == nil: админские команды доступны всем, кто открыл панель.
	IsAdmin func(int64) bool
	// Backup может быть nil или выключен, тогда чистка идёт без бэкапа.
	Backup *backupclient.Client
	// Catalog — для /reload; кэш сбрасывается, если он это умеет.
	Catalog catalog.Provider
	// Location — часовой пояс для дат в сводках; nil — UTC.
	Location *time.Location
}

func NewConsole(bot tg.Sender, database *sql.DB, sessions *Sessions, cfg ConsoleConfig, log *zap.SugaredLogger) *Console {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Console{
		bot:      bot,
		db:       database,
		engine:   analytics.NewEngine(database),
		sessions: sessions,
		password: cfg.Password,
		isAdmin:  cfg.IsAdmin,
		backup:   cfg.Backup,
		catalog:  cfg.Catalog,
		loc:      loc,
		log:      log,
	}
}

// IsCommand — команды панели (кроме /dashboard).
func IsCommand(cmd string) bool {
	switch cmd {
	case "stats", "images", "users", "participants", "top", "controversial",
		"suspicious", "flagged", "export", "cleanup", "backup", "reload":
		return true
	}
	return false
}

// HandleUnlock — /dashboard <пароль>. Сообщение с паролем удаляем из чата.
func (c *Console) HandleUnlock(ctx context.Context, msg *tgbotapi.Message, arg string) {
	chatID := msg.Chat.ID
	if c.password == "" {
		tg.SendText(c.bot, chatID, "Панель не настроена: пароль не задан.")
		return
	}
	if arg == "" {
		tg.SendText(c.bot, chatID, "Использование: /dashboard <пароль>")
		return
	}
	_, _ = c.bot.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID))

	if subtle.ConstantTimeCompare([]byte(arg), []byte(c.password)) != 1 {
		tg.SendText(c.bot, chatID, "❌ Неверный пароль.")
		return
	}
	c.sessions.get(chatID).unlocked = true

	m := tgbotapi.NewMessage(chatID, "✅ Добро пожаловать в панель.\n"+
		"/stats /images /users /participants /top /controversial /suspicious /flagged /export\n"+
		"/cleanup <шаблон> [exact] /backup /reload")
	m.ReplyMarkup = menu.ConsoleMenu()
	_, _ = tg.Send(c.bot, m)
}

// Handle — команды панели; доступ только после /dashboard.
func (c *Console) Handle(ctx context.Context, msg *tgbotapi.Message, cmd, arg string) {
	chatID := msg.Chat.ID
	if !c.sessions.get(chatID).unlocked {
		tg.SendText(c.bot, chatID, "🔒 Сначала /dashboard <пароль>")
		return
	}
	ctx = ctxutil.WithOp(ctx, "console_"+cmd)
	dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var (
		text string
		err  error
	)
	switch cmd {
	case "stats":
		var o models.Overview
		if o, err = c.engine.Overview(dbCtx); err == nil {
			metrics.SetLedger(o)
			text = FormatOverview(o)
		}
	case "images":
		var stats []models.ImageStats
		if stats, err = c.engine.ImageStatistics(dbCtx); err == nil {
			text = FormatImages(stats, tableLimit)
		}
	case "users":
		var users []models.UserStats
		if users, err = c.engine.UserStatistics(dbCtx); err == nil {
			text = FormatUsers(users, tableLimit, c.loc)
		}
	case "participants":
		var ps []models.Participant
		if ps, err = db.ListParticipants(dbCtx, c.db); err == nil {
			text = formatParticipants(ps, tableLimit, c.loc)
		}
	case "top":
		var top, bottom []models.RankedImage
		if top, bottom, err = c.engine.TopAndBottom(dbCtx, analytics.DefaultTopN, analytics.DefaultMinValid); err == nil {
			text = FormatTopBottom(top, bottom)
		}
	case "controversial":
		var stats []models.ImageStats
		if stats, err = c.engine.Controversial(dbCtx, analytics.DefaultControversyMinCnt); err == nil {
			text = FormatControversial(stats, tableLimit)
		}
	case "suspicious":
		var suspects []analytics.Suspect
		if suspects, err = c.engine.SuspiciousUsers(dbCtx); err == nil {
			text = FormatSuspects(suspects)
		}
	case "flagged":
		var ids []string
		if ids, err = c.engine.Flagged(dbCtx); err == nil {
			text = FormatFlagged(ids)
		}
	case "export":
		c.export(dbCtx, chatID)
		return
	case "cleanup":
		c.cleanup(ctx, msg, arg)
		return
	case "backup":
		c.runBackup(ctx, msg)
		return
	case "reload":
		text, err = c.reload(dbCtx)
	}
	if err != nil {
		c.fail(ctx, chatID, err)
		return
	}
	tg.SendText(c.bot, chatID, text)
}

func (c *Console) export(ctx context.Context, chatID int64) {
	if !fsmutil.SetPending(chatID, "export") {
		tg.SendText(c.bot, chatID, "⏳ Выгрузка уже готовится.")
		return
	}
	defer fsmutil.ClearPending(chatID, "export")

	rs, err := db.AllRatings(ctx, c.db)
	if err != nil {
		c.fail(ctx, chatID, err)
		return
	}
	if len(rs) == 0 {
		tg.SendText(c.bot, chatID, "Оценок пока нет.")
		return
	}
	images, err := c.engine.ImageStatistics(ctx)
	if err != nil {
		c.fail(ctx, chatID, err)
		return
	}
	users, err := c.engine.UserStatistics(ctx)
	if err != nil {
		c.fail(ctx, chatID, err)
		return
	}

	var all, valid, xlsx bytes.Buffer
	if err := export.WriteRatingsCSV(&all, rs); err != nil {
		c.fail(ctx, chatID, err)
		return
	}
	if err := export.WriteValidCSV(&valid, rs); err != nil {
		c.fail(ctx, chatID, err)
		return
	}
	wb, err := export.RatingsWorkbook(rs, images, users)
	if err != nil {
		c.fail(ctx, chatID, err)
		return
	}
	if err := wb.Write(&xlsx); err != nil {
		c.fail(ctx, chatID, err)
		return
	}

	files := []tgbotapi.FileBytes{
		{Name: export.CSVFilename, Bytes: all.Bytes()},
		{Name: export.ValidCSVFilename, Bytes: valid.Bytes()},
		{Name: export.BuildWorkbookFilename(time.Now()), Bytes: xlsx.Bytes()},
	}
	for _, f := range files {
		if _, err := tg.Send(c.bot, tgbotapi.NewDocument(chatID, f)); err != nil {
			c.log.Warnw("send export failed", "file", f.Name, "err", err)
		}
	}
}

// cleanup — /cleanup <шаблон> [exact]. Без exact — подстрока без учёта регистра.
func (c *Console) cleanup(ctx context.Context, msg *tgbotapi.Message, arg string) {
	chatID := msg.Chat.ID
	if !c.admin(msg) {
		tg.SendText(c.bot, chatID, "🚫 Только для администратора.")
		return
	}
	pattern, exact := parseCleanupArgs(arg)
	if pattern == "" {
		tg.SendText(c.bot, chatID, "Использование: /cleanup <шаблон> [exact]")
		return
	}
	if !fsmutil.SetPending(chatID, "cleanup") {
		tg.SendText(c.bot, chatID, "⏳ Чистка уже выполняется.")
		return
	}
	defer fsmutil.ClearPending(chatID, "cleanup")

	if c.backup.Enabled() {
		name, err := c.backup.Trigger(ctx)
		if err != nil {
			c.fail(ctx, chatID, fmt.Errorf("backup before cleanup: %w", err))
			return
		}
		c.log.Infow("backup before cleanup", "dump", name)
	}

	dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	res, err := db.CleanupParticipants(dbCtx, c.db, pattern, exact)
	if err != nil {
		c.fail(ctx, chatID, err)
		return
	}
	metrics.RatingsCleaned.Add(float64(res.Rows))
	c.log.Infow("cleanup", "pattern", pattern, "exact", exact, "participants", res.Participants, "rows", res.Rows)
	if res.Participants == 0 {
		tg.SendText(c.bot, chatID, "Совпадений не найдено.")
		return
	}
	tg.SendText(c.bot, chatID, fmt.Sprintf("🧹 Удалено участников: %d, записей: %d.", res.Participants, res.Rows))
}

// runBackup — /backup: ручной бэкап базы через сайдкар.
func (c *Console) runBackup(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !c.admin(msg) {
		tg.SendText(c.bot, chatID, "🚫 Только для администратора.")
		return
	}
	if !c.backup.Enabled() {
		tg.SendText(c.bot, chatID, "Бэкап не настроен (BACKUPCTL_URL).")
		return
	}
	if !fsmutil.SetPending(chatID, "backup") {
		tg.SendText(c.bot, chatID, "⏳ Бэкап уже выполняется.")
		return
	}
	defer fsmutil.ClearPending(chatID, "backup")

	tg.SendText(c.bot, chatID, "⏳ Делаю бэкап…")
	name, err := c.backup.Trigger(ctx)
	if err != nil {
		c.fail(ctx, chatID, err)
		return
	}
	tg.SendText(c.bot, chatID, "✅ Бэкап готов: "+name)
}

// reload — /reload: перечитать каталог картинок, не дожидаясь истечения кэша.
func (c *Console) reload(ctx context.Context) (string, error) {
	if c.catalog == nil {
		return "Каталог картинок не подключён.", nil
	}
	if inv, ok := c.catalog.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
	ids, err := c.catalog.ListImageIDs(ctx)
	if err != nil {
		return "", err
	}
	c.log.Infow("catalog reloaded", "images", len(ids))
	return fmt.Sprintf("🔄 Каталог перечитан: картинок %d.", len(ids)), nil
}

func (c *Console) admin(msg *tgbotapi.Message) bool {
	if c.isAdmin == nil {
		return true
	}
	return msg.From != nil && c.isAdmin(msg.From.ID)
}

// parseCleanupArgs — последний токен "exact" (в любом регистре) включает точное совпадение.
func parseCleanupArgs(arg string) (pattern string, exact bool) {
	arg = strings.TrimSpace(arg)
	if i := strings.LastIndexAny(arg, " \t"); i > 0 && strings.EqualFold(arg[i+1:], "exact") {
		return strings.TrimSpace(arg[:i]), true
	}
	return arg, false
}

func formatParticipants(ps []models.Participant, limit int, loc *time.Location) string {
	if len(ps) == 0 {
		return "Участников пока нет."
	}
	var b strings.Builder
	b.WriteString("🗂 Участники (записей, первая → последняя)\n")
	for i, p := range ps {
		if i >= limit {
			fmt.Fprintf(&b, "… и ещё %d", len(ps)-limit)
			break
		}
		fmt.Fprintf(&b, "%s: %d, %s → %s\n", p.Identifier, p.Total,
			p.First.In(loc).Format("02.01 15:04"), p.Last.In(loc).Format("02.01 15:04"))
	}
	return clip(b.String())
}

func (c *Console) fail(ctx context.Context, chatID int64, err error) {
	metrics.HandlerErrors.Inc()
	c.log.Errorw("console failed", "chat", chatID, "err", err)
	observability.CaptureCtx(ctx, err)
	text := "❌ Не удалось выполнить запрос."
	if errors.Is(err, db.ErrStorage) {
		text = "❌ База данных недоступна, попробуйте позже."
	}
	tg.SendText(c.bot, chatID, text)
}
