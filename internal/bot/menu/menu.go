package menu

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Данные callback'ов оценки. Картинка в данных не передаётся: оценка относится
// к текущей картинке сессии, старые клавиатуры гасятся после действия.
const (
	CallbackPrefix = "rate:"
	DataSkip       = CallbackPrefix + "skip"
	DataFlag       = CallbackPrefix + "flag"
	DataUndo       = CallbackPrefix + "undo"
)

// RatingKeyboard — 1..10 в две строки, затем пропуск/жалоба/отмена.
func RatingKeyboard(canUndo bool) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 3)
	for start := 1; start <= 10; start += 5 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
		for v := start; v < start+5; v++ {
			s := strconv.Itoa(v)
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(s, CallbackPrefix+s))
		}
		rows = append(rows, row)
	}
	actions := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⏭ Пропустить", DataSkip),
		tgbotapi.NewInlineKeyboardButtonData("🚩 Пожаловаться", DataFlag),
	)
	if canUndo {
		actions = append(actions, tgbotapi.NewInlineKeyboardButtonData("↩️ Отменить", DataUndo))
	}
	rows = append(rows, actions)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ConsoleMenu — команды панели аналитики.
func ConsoleMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/stats"),
			tgbotapi.NewKeyboardButton("/images"),
			tgbotapi.NewKeyboardButton("/users"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/top"),
			tgbotapi.NewKeyboardButton("/controversial"),
			tgbotapi.NewKeyboardButton("/suspicious"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/flagged"),
			tgbotapi.NewKeyboardButton("/export"),
			tgbotapi.NewKeyboardButton("/participants"),
		),
	)
}
