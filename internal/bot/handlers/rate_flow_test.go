//go:build testutil
// +build testutil

package handlers

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Spok95/face-rating-bot/internal/assign"
	"github.com/Spok95/face-rating-bot/internal/bot/menu"
	"github.com/Spok95/face-rating-bot/internal/db"
	"github.com/Spok95/face-rating-bot/internal/logging"
	"github.com/Spok95/face-rating-bot/internal/models"
	"github.com/Spok95/face-rating-bot/internal/testutil/testdb"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// imageSet — каталог из фиксированного списка, файлы в "faces/".
type imageSet []string

func (s imageSet) ListImageIDs(context.Context) ([]string, error) { return s, nil }

func (s imageSet) Path(id string) (string, error) { return filepath.Join("faces", id), nil }

func shownImage(t *testing.T, p tgbotapi.PhotoConfig) string {
	t.Helper()
	fp, ok := p.File.(tgbotapi.FilePath)
	require.True(t, ok, "картинка отправляется файлом")
	return filepath.Base(string(fp))
}

func lastShown(t *testing.T, bot *fakeBot) (string, tgbotapi.PhotoConfig) {
	t.Helper()
	ps := bot.photos()
	require.NotEmpty(t, ps)
	p := ps[len(ps)-1]
	return shownImage(t, p), p
}

func countTexts(bot *fakeBot, substr string) int {
	n := 0
	for _, s := range bot.texts() {
		if strings.Contains(s, substr) {
			n++
		}
	}
	return n
}

func participantRatings(t *testing.T, database *sql.DB, participant string) map[string]float64 {
	t.Helper()
	all, err := db.AllRatings(context.Background(), database)
	require.NoError(t, err)
	out := make(map[string]float64)
	for _, r := range all {
		if r.Participant == participant {
			_, dup := out[r.ImageID]
			require.False(t, dup, "повтор %s", r.ImageID)
			out[r.ImageID] = r.Rating
		}
	}
	return out
}

// Каталог {A,B,C}: оценка, пропуск, отмена пропуска, снова пропуск, жалоба,
// затем экран завершения с самой популярной и самой непопулярной картинкой.
func TestRater_FullFlow(t *testing.T) {
	h, err := testdb.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(h.Close)
	database := h.DB
	ctx := context.Background()

	// чужие оценки: A — лидер, B — аутсайдер при любых оценках alice
	for _, r := range []struct {
		image  string
		rating float64
		who    string
	}{
		{"A.png", 9, "bob"}, {"B.png", 3, "bob"}, {"C.png", 5, "bob"},
		{"A.png", 10, "carol"}, {"B.png", 2, "carol"}, {"C.png", 5, "carol"},
	} {
		_, err := db.SaveRating(ctx, database, r.image, r.rating, r.who)
		require.NoError(t, err)
	}

	catalog := imageSet{"A.png", "B.png", "C.png"}
	bot := &fakeBot{}
	sessions := NewSessions(assign.WithRand(rand.New(rand.NewPCG(1, 2))))
	r := NewRater(bot, database, catalog, catalog, sessions, logging.Nop().Sugar)

	press := func(data string) {
		t.Helper()
		st := sessions.get(1)
		require.NotZero(t, st.photoMsgID, "кнопки есть только у показанной картинки")
		r.HandleCallback(ctx, &tgbotapi.CallbackQuery{
			ID:      "cb",
			Data:    data,
			Message: &tgbotapi.Message{MessageID: st.photoMsgID, Chat: &tgbotapi.Chat{ID: 1}},
		})
	}

	r.HandleStart(ctx, textMsg(1, "/start"))
	require.True(t, r.HandleText(ctx, textMsg(1, "alice")))
	first, p := lastShown(t, bot)
	assert.Contains(t, p.Caption, "Прогресс: 0 / 3")

	press(menu.CallbackPrefix + "8")
	second, p := lastShown(t, bot)
	assert.NotEqual(t, first, second)
	assert.Contains(t, p.Caption, "Сохранено: оценка 8")
	assert.Contains(t, p.Caption, "Прогресс: 1 / 3")

	press(menu.DataSkip)
	third, _ := lastShown(t, bot)
	assert.NotContains(t, []string{first, second}, third)

	press(menu.DataUndo)
	again, p := lastShown(t, bot)
	assert.Equal(t, second, again, "после отмены показываем ту же картинку")
	assert.Contains(t, p.Caption, "Отменено: пропуск")
	assert.Contains(t, p.Caption, "Прогресс: 1 / 3")

	press(menu.DataSkip)
	shown, _ := lastShown(t, bot)
	assert.Equal(t, third, shown)

	press(menu.DataFlag)
	assert.Equal(t, 1, countTexts(bot, "Вы оценили все доступные картинки"))
	ps := bot.photos()
	require.GreaterOrEqual(t, len(ps), 2)
	top, bottom := ps[len(ps)-2], ps[len(ps)-1]
	assert.Equal(t, "A.png", shownImage(t, top))
	assert.True(t, strings.HasPrefix(top.Caption, "😍 Самая популярная"), top.Caption)
	assert.Equal(t, "B.png", shownImage(t, bottom))
	assert.True(t, strings.HasPrefix(bottom.Caption, "🙃 Самая непопулярная"), bottom.Caption)
	assert.Equal(t, assign.Exhausted, sessions.get(1).session.State())

	assert.Equal(t, map[string]float64{
		first:  8,
		second: models.RatingSkip,
		third:  models.RatingFlag,
	}, participantRatings(t, database, "alice"))

	// после завершения оценка числом ничего не пишет и награду не повторяет
	photosBefore := len(bot.photos())
	require.True(t, r.HandleText(ctx, textMsg(1, "7")))
	assert.Equal(t, doneText, bot.lastText())
	assert.Equal(t, 1, countTexts(bot, "Вы оценили все доступные картинки"))
	assert.Len(t, bot.photos(), photosBefore)
	assert.Len(t, participantRatings(t, database, "alice"), 3)
}
