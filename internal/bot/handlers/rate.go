package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Spok95/face-rating-bot/internal/analytics"
	"github.com/Spok95/face-rating-bot/internal/assign"
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

const doneText = "✅ Вы уже оценили все картинки. Отменить последнюю — /undo, сменить имя — /name."

// ImageFiles — путь к файлу картинки по её идентификатору.
type ImageFiles interface {
	Path(id string) (string, error)
}

// Rater — сценарий оценки: представиться, получить картинку, оценить/пропустить/пожаловаться.
// Все вызовы одного чата сериализует app.ChatLimiter.
type Rater struct {
	bot      tg.Sender
	db       *sql.DB
	catalog  catalog.Provider
	files    ImageFiles
	sessions *Sessions
	log      *zap.SugaredLogger
}

func NewRater(bot tg.Sender, database *sql.DB, cat catalog.Provider, files ImageFiles, sessions *Sessions, log *zap.SugaredLogger) *Rater {
	return &Rater{bot: bot, db: database, catalog: cat, files: files, sessions: sessions, log: log}
}

func (r *Rater) HandleStart(ctx context.Context, msg *tgbotapi.Message) {
	r.sessions.reset(msg.Chat.ID)
	tg.SendText(r.bot, msg.Chat.ID,
		"👋 Добро пожаловать в оценку лиц!\n"+
			"Введите имя или ID, чтобы начать.\n\n"+
			"Оценка — кнопками 1–10 или числом от 1.0 до 10.0 сообщением.")
}

// HandleName — /name <id>: сменить идентификатор без /start.
func (r *Rater) HandleName(ctx context.Context, msg *tgbotapi.Message, arg string) {
	participant, ok := normalizeParticipant(arg)
	if !ok {
		tg.SendText(r.bot, msg.Chat.ID, "Использование: /name <имя или ID>")
		return
	}
	st := r.sessions.get(msg.Chat.ID)
	fsmutil.DisableMarkup(r.bot, msg.Chat.ID, st.photoMsgID)
	st = r.sessions.begin(msg.Chat.ID, participant)
	r.present(ctxutil.WithParticipant(ctx, participant), msg.Chat.ID, st, "")
}

// HandleText — ввод имени или оценки числом. false — сообщение не наше.
func (r *Rater) HandleText(ctx context.Context, msg *tgbotapi.Message) bool {
	chatID := msg.Chat.ID
	st := r.sessions.get(chatID)

	if st.awaitingName {
		participant, ok := normalizeParticipant(msg.Text)
		if !ok {
			tg.SendText(r.bot, chatID, "Пожалуйста, введите имя или ID.")
			return true
		}
		st = r.sessions.begin(chatID, participant)
		r.present(ctxutil.WithParticipant(ctx, participant), chatID, st, "")
		return true
	}
	if st.participant == "" {
		return false
	}

	v, err := ParseRating(msg.Text)
	if errors.Is(err, errNotANumber) {
		return false
	}
	if err != nil {
		tg.SendText(r.bot, chatID, "Оценка должна быть от 1.0 до 10.0.")
		return true
	}
	r.act(ctxutil.WithParticipant(ctx, st.participant), chatID, st, v)
	return true
}

func (r *Rater) HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	action, value, ok := ParseAction(cb.Data)
	if !ok {
		tg.Answer(r.bot, cb.ID, "")
		return
	}
	st := r.sessions.get(chatID)
	if st.participant == "" || st.session == nil {
		tg.Answer(r.bot, cb.ID, "Сначала /start")
		fsmutil.DisableMarkup(r.bot, chatID, cb.Message.MessageID)
		return
	}
	if cb.Message.MessageID != st.photoMsgID {
		tg.Answer(r.bot, cb.ID, "Эта картинка уже неактуальна")
		fsmutil.DisableMarkup(r.bot, chatID, cb.Message.MessageID)
		return
	}
	ctx = ctxutil.WithParticipant(ctx, st.participant)

	switch action {
	case ActionUndo:
		tg.Answer(r.bot, cb.ID, "")
		r.undo(ctx, chatID, st)
	default:
		tg.Answer(r.bot, cb.ID, actionToast(action, value))
		r.act(ctx, chatID, st, value)
	}
}

// HandleUndo — /undo: отменить последнюю запись участника.
func (r *Rater) HandleUndo(ctx context.Context, msg *tgbotapi.Message) {
	st := r.sessions.get(msg.Chat.ID)
	if st.participant == "" || st.session == nil {
		tg.SendText(r.bot, msg.Chat.ID, "Сначала /start")
		return
	}
	r.undo(ctxutil.WithParticipant(ctx, st.participant), msg.Chat.ID, st)
}

func (r *Rater) act(ctx context.Context, chatID int64, st *chatState, value float64) {
	imageID, ok := st.session.Current()
	if !ok {
		if st.session.State() == assign.Exhausted {
			tg.SendText(r.bot, chatID, doneText)
			return
		}
		r.present(ctx, chatID, st, "")
		return
	}

	ctx = ctxutil.WithOp(ctx, "save_rating")
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	saved, err := db.SaveRating(dbCtx, r.db, imageID, value, st.participant)
	cancel()
	if err != nil {
		r.fail(ctx, chatID, "❌ Не удалось сохранить, попробуйте ещё раз.", err)
		return
	}
	metrics.ObserveSaved(value)
	r.log.Debugw("rating saved", "participant", st.participant, "image", imageID, "rating", value)

	st.session.Acted(imageID)
	fsmutil.DisableMarkup(r.bot, chatID, st.photoMsgID)
	st.photoMsgID = 0
	r.present(ctx, chatID, st, "Сохранено: "+describe(saved))
}

func (r *Rater) undo(ctx context.Context, chatID int64, st *chatState) {
	ctx = ctxutil.WithOp(ctx, "undo_rating")
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	removed, found, err := db.UndoLastRating(dbCtx, r.db, st.participant)
	cancel()
	if err != nil {
		r.fail(ctx, chatID, "❌ Не удалось отменить, попробуйте ещё раз.", err)
		return
	}
	if !found {
		tg.SendText(r.bot, chatID, "Отменять нечего.")
		return
	}
	metrics.RatingsUndone.Inc()

	st.session.Restore(removed.ImageID)
	fsmutil.DisableMarkup(r.bot, chatID, st.photoMsgID)
	st.photoMsgID = 0
	r.present(ctx, chatID, st, "↩️ Отменено: "+describe(removed))
}

// present — показать текущую картинку или экран завершения.
func (r *Rater) present(ctx context.Context, chatID int64, st *chatState, note string) {
	ctx = ctxutil.WithOp(ctx, "present")
	ids, err := r.catalog.ListImageIDs(ctx)
	if err != nil {
		r.fail(ctx, chatID, "⚠️ Каталог картинок недоступен. Попробуйте позже.", err)
		return
	}
	if len(ids) == 0 {
		tg.SendText(r.bot, chatID, "Картинок для оценки пока нет.")
		return
	}

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	rated, err := db.RatedImageIDs(dbCtx, r.db, st.participant)
	cancel()
	if err != nil {
		r.fail(ctx, chatID, "❌ Ошибка базы данных, попробуйте позже.", err)
		return
	}

	imageID, ok := st.session.Next(ids, rated)
	if !ok {
		r.finish(ctx, chatID, note)
		return
	}

	path, err := r.files.Path(imageID)
	if err != nil {
		r.fail(ctx, chatID, "⚠️ Не удалось открыть картинку.", err)
		return
	}
	done := len(ids) - len(assign.Unrated(ids, rated))
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = progressCaption(note, done, len(ids))
	photo.ReplyMarkup = menu.RatingKeyboard(len(rated) > 0)
	m, err := tg.Send(r.bot, photo)
	if err != nil {
		r.log.Warnw("send photo failed", "image", imageID, "err", err)
		return
	}
	st.photoMsgID = m.MessageID
}

// finish — всё оценено: благодарность и «награда» — самая популярная и самая непопулярная картинка.
func (r *Rater) finish(ctx context.Context, chatID int64, note string) {
	metrics.ParticipantsExhausted.Inc()
	text := "🎉 Вы оценили все доступные картинки. Спасибо!"
	if note != "" {
		text = note + "\n\n" + text
	}
	tg.SendText(r.bot, chatID, text)

	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	top, bottom, err := db.TopAndBottomImages(dbCtx, r.db, 1, analytics.DefaultMinValid)
	cancel()
	if err != nil {
		r.log.Warnw("top/bottom for reward failed", "err", err)
		observability.CaptureCtx(ctx, err)
		return
	}
	if len(top) > 0 {
		r.sendReward(chatID, "😍 Самая популярная", top[0])
	}
	if len(bottom) > 0 && (len(top) == 0 || bottom[0].ImageID != top[0].ImageID) {
		r.sendReward(chatID, "🙃 Самая непопулярная", bottom[0])
	}
}

func (r *Rater) sendReward(chatID int64, title string, img models.RankedImage) {
	caption := fmt.Sprintf("%s: средняя %.2f (%d оценок)", title, img.Mean, img.Valid)
	path, err := r.files.Path(img.ImageID)
	if err != nil {
		tg.SendText(r.bot, chatID, caption)
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	if _, err := tg.Send(r.bot, photo); err != nil {
		tg.SendText(r.bot, chatID, caption)
	}
}

func (r *Rater) fail(ctx context.Context, chatID int64, userText string, err error) {
	metrics.HandlerErrors.Inc()
	op, _ := ctxutil.Op(ctx)
	r.log.Errorw("rater failed", "op", op, "chat", chatID, "err", err)
	if !errors.Is(err, catalog.ErrCatalogUnavailable) {
		observability.CaptureCtx(ctx, err)
	}
	tg.SendText(r.bot, chatID, userText)
}

func progressCaption(note string, done, total int) string {
	var b strings.Builder
	if note != "" {
		b.WriteString(note)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Прогресс: %d / %d", done, total)
	return b.String()
}

func describe(r models.Rating) string {
	switch r.Kind() {
	case models.KindSkip:
		return "пропуск"
	case models.KindFlag:
		return "жалоба"
	default:
		return "оценка " + export.FormatRating(r.Rating)
	}
}

func actionToast(a Action, v float64) string {
	switch a {
	case ActionSkip:
		return "➡️ Пропущено"
	case ActionFlag:
		return "🚩 Отправлено на проверку"
	default:
		return "✅ " + export.FormatRating(v)
	}
}
