package handlers

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Spok95/face-rating-bot/internal/bot/menu"
	"github.com/Spok95/face-rating-bot/internal/models"
)

type Action int

const (
	ActionNone Action = iota
	ActionRate
	ActionSkip
	ActionFlag
	ActionUndo
)

var errNotANumber = errors.New("not a number")

// ParseRating — оценка из текста: "7", "7.5", "7,5". Шкала 1.0–10.0,
// округляем до одного знака.
func ParseRating(text string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotANumber
	}
	v = math.Round(v*10) / 10
	if v < models.MinScore || v > models.MaxScore {
		return 0, fmt.Errorf("rating %.1f out of range %.0f–%.0f", v, models.MinScore, models.MaxScore)
	}
	return v, nil
}

// ParseAction — разбор callback data от клавиатуры оценки.
func ParseAction(data string) (Action, float64, bool) {
	switch data {
	case menu.DataSkip:
		return ActionSkip, models.RatingSkip, true
	case menu.DataFlag:
		return ActionFlag, models.RatingFlag, true
	case menu.DataUndo:
		return ActionUndo, 0, true
	}
	raw, ok := strings.CutPrefix(data, menu.CallbackPrefix)
	if !ok {
		return ActionNone, 0, false
	}
	v, err := ParseRating(raw)
	if err != nil {
		return ActionNone, 0, false
	}
	return ActionRate, v, true
}

// normalizeParticipant — имя/ID участника как ввели, без пробелов по краям.
// Внутренние пробелы не трогаем: "John  Doe" и "John Doe" — разные участники.
func normalizeParticipant(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
