package handlers

import (
	"context"
	"testing"

	"github.com/Spok95/face-rating-bot/internal/bot/menu"
	"github.com/Spok95/face-rating-bot/internal/logging"
	"github.com/Spok95/face-rating-bot/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRater(bot *fakeBot) (*Rater, *Sessions) {
	s := NewSessions()
	return NewRater(bot, nil, nil, nil, s, logging.Nop().Sugar), s
}

func TestRater_StartAsksForName(t *testing.T) {
	bot := &fakeBot{}
	r, s := newTestRater(bot)

	r.HandleStart(context.Background(), textMsg(1, "/start"))
	assert.True(t, s.get(1).awaitingName)
	assert.Contains(t, bot.lastText(), "Введите имя")
}

func TestRater_TextIgnoredWithoutParticipant(t *testing.T) {
	bot := &fakeBot{}
	r, _ := newTestRater(bot)

	assert.False(t, r.HandleText(context.Background(), textMsg(1, "7")))
	assert.Empty(t, bot.sent)
}

func TestRater_BlankNameRejected(t *testing.T) {
	bot := &fakeBot{}
	r, s := newTestRater(bot)
	r.HandleStart(context.Background(), textMsg(1, "/start"))

	assert.True(t, r.HandleText(context.Background(), textMsg(1, "   ")))
	assert.True(t, s.get(1).awaitingName)
	assert.Contains(t, bot.lastText(), "введите имя")
}

func TestRater_CallbackWithoutSession(t *testing.T) {
	bot := &fakeBot{}
	r, _ := newTestRater(bot)

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    menu.CallbackPrefix + "7",
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: 1}},
	}
	r.HandleCallback(context.Background(), cb)

	require.Len(t, bot.requests, 2)
	answer, ok := bot.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "Сначала /start", answer.Text)
	_, ok = bot.requests[1].(tgbotapi.EditMessageReplyMarkupConfig)
	assert.True(t, ok, "старую клавиатуру гасим")
}

func TestRater_StaleCallback(t *testing.T) {
	bot := &fakeBot{}
	r, s := newTestRater(bot)
	st := s.begin(1, "alice")
	st.photoMsgID = 10

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb2",
		Data:    menu.DataSkip,
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: 1}},
	}
	r.HandleCallback(context.Background(), cb)

	answer, ok := bot.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Contains(t, answer.Text, "неактуальна")
	assert.Empty(t, bot.sent, "ничего не сохраняем")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "оценка 7.5", describe(models.Rating{Rating: 7.5}))
	assert.Equal(t, "пропуск", describe(models.Rating{Rating: models.RatingSkip}))
	assert.Equal(t, "жалоба", describe(models.Rating{Rating: models.RatingFlag}))
}

func TestProgressCaption(t *testing.T) {
	assert.Equal(t, "Прогресс: 2 / 5", progressCaption("", 2, 5))
	assert.Equal(t, "Сохранено: пропуск\nПрогресс: 3 / 5", progressCaption("Сохранено: пропуск", 3, 5))
}

func TestRater_TypedRatingAfterExhausted(t *testing.T) {
	bot := &fakeBot{}
	r, s := newTestRater(bot)
	st := s.begin(1, "alice")
	_, ok := st.session.Next(nil, nil)
	require.False(t, ok)

	for i := 0; i < 2; i++ {
		assert.True(t, r.HandleText(context.Background(), textMsg(1, "7")))
	}
	assert.Equal(t, []string{doneText, doneText}, bot.texts(), "экран завершения повторно не показываем")
}
