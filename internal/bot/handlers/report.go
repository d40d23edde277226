package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/face-rating-bot/internal/analytics"
	"github.com/Spok95/face-rating-bot/internal/models"
)

// Текстовые сводки для панели. Telegram режет сообщения на 4096 символов,
// поэтому таблицы ограничены limit строками.

const maxMessageLen = 4000

func FormatOverview(o models.Overview) string {
	var b strings.Builder
	b.WriteString("📊 Ключевые показатели\n")
	fmt.Fprintf(&b, "Всего записей: %d\n", o.Total)
	fmt.Fprintf(&b, "Оценок: %d\n", o.Valid)
	fmt.Fprintf(&b, "Пропусков: %d\n", o.Skips)
	fmt.Fprintf(&b, "Жалоб: %d\n", o.Flags)
	fmt.Fprintf(&b, "Средняя: %s\n", optional(o.Mean))
	fmt.Fprintf(&b, "Ст. отклонение (выборочное): %s", optional(o.StdDev))
	return b.String()
}

func FormatImages(stats []models.ImageStats, limit int) string {
	if len(stats) == 0 {
		return "Оценок пока нет."
	}
	var b strings.Builder
	b.WriteString("🖼 Картинки (всего / оценок / пропусков / жалоб, средняя [мин–макс], разброс)\n")
	for i, s := range stats {
		if i >= limit {
			fmt.Fprintf(&b, "… и ещё %d", len(stats)-limit)
			break
		}
		contr := "—"
		if c, ok := s.Controversy(); ok {
			contr = fmt.Sprintf("%.1f", c)
		}
		fmt.Fprintf(&b, "%s: %d/%d/%d/%d, %s [%s–%s], %s\n",
			s.ImageID, s.Total, s.Valid, s.Skips, s.Flags,
			optional(s.Mean), optional(s.Min), optional(s.Max), contr)
	}
	return clip(b.String())
}

// FormatUsers — даты первой и последней записи в часовом поясе loc.
func FormatUsers(users []models.UserStats, limit int, loc *time.Location) string {
	if len(users) == 0 {
		return "Участников пока нет."
	}
	var b strings.Builder
	b.WriteString("👥 Участники (всего / оценок / пропусков / жалоб, средняя, первая → последняя)\n")
	for i, u := range users {
		if i >= limit {
			fmt.Fprintf(&b, "… и ещё %d", len(users)-limit)
			break
		}
		fmt.Fprintf(&b, "%s: %d/%d/%d/%d, %s, %s → %s\n",
			u.Participant, u.Total, u.Valid, u.Skips, u.Flags, optional(u.Mean),
			u.First.In(loc).Format("02.01 15:04"), u.Last.In(loc).Format("02.01 15:04"))
	}
	return clip(b.String())
}

func FormatTopBottom(top, bottom []models.RankedImage) string {
	if len(top) == 0 && len(bottom) == 0 {
		return "Недостаточно оценок для рейтинга."
	}
	var b strings.Builder
	b.WriteString("🏆 Самые популярные\n")
	writeRanked(&b, top)
	b.WriteString("\n👎 Самые непопулярные\n")
	writeRanked(&b, bottom)
	return b.String()
}

func writeRanked(b *strings.Builder, xs []models.RankedImage) {
	for i, r := range xs {
		fmt.Fprintf(b, "%d. %s — %.2f (%d)\n", i+1, r.ImageID, r.Mean, r.Valid)
	}
}

func FormatControversial(stats []models.ImageStats, limit int) string {
	if len(stats) == 0 {
		return "Спорных картинок нет."
	}
	var b strings.Builder
	b.WriteString("⚖️ Самые спорные (max − min)\n")
	for i, s := range stats {
		if i >= limit {
			break
		}
		c, _ := s.Controversy()
		fmt.Fprintf(&b, "%s — %.1f (%d оценок, средняя %s)\n", s.ImageID, c, s.Valid, optional(s.Mean))
	}
	return clip(b.String())
}

func FormatSuspects(suspects []analytics.Suspect) string {
	if len(suspects) == 0 {
		return "Подозрительных участников нет."
	}
	var b strings.Builder
	b.WriteString("🕵️ На проверку (не бан)\n")
	for _, s := range suspects {
		reasons := make([]string, 0, len(s.Reasons))
		for _, r := range s.Reasons {
			reasons = append(reasons, reasonLabel(r))
		}
		fmt.Fprintf(&b, "%s: средняя %s, жалоб %d из %d — %s\n",
			s.User.Participant, optional(s.User.Mean), s.User.Flags, s.User.Total, strings.Join(reasons, ", "))
	}
	return clip(b.String())
}

func FormatFlagged(ids []string) string {
	if len(ids) == 0 {
		return "Жалоб нет."
	}
	return clip("🚩 Картинки с жалобами:\n" + strings.Join(ids, "\n"))
}

func reasonLabel(r analytics.Reason) string {
	switch r {
	case analytics.ReasonMaxMean:
		return "максимальная средняя"
	case analytics.ReasonMinMean:
		return "минимальная средняя"
	case analytics.ReasonFlags:
		return "жалоб больше половины"
	default:
		return string(r)
	}
}

func optional(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.2f", *v)
}

func clip(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := strings.LastIndex(s[:maxMessageLen], "\n")
	if cut <= 0 {
		cut = maxMessageLen
	}
	return s[:cut] + "\n…"
}
