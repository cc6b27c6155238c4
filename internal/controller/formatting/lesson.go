package formatting

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/pricing"
)

// LessonLine одна строка списка уроков
func LessonLine(l *model.Lesson, name string, loc *time.Location, currency string) string {
	status := LessonStatusDisplay(l.Status)
	paid := PaidStatusDisplay(l.PaidStatus)
	start := l.StartAt.In(loc)

	return fmt.Sprintf("%s #%d %s %s %s, %s · %s %s",
		status.Emoji,
		l.ID,
		GetWeekdayShortName(start.Weekday()),
		FormatDate(start),
		FormatTimeRange(start, l.EndAt.In(loc)),
		name,
		FormatPrice(pricing.LessonCost(l), currency),
		paid.Emoji,
	)
}

// LessonCard подробности урока после изменения
func LessonCard(l *model.Lesson, name string, loc *time.Location, currency string) string {
	status := LessonStatusDisplay(l.Status)
	paid := PaidStatusDisplay(l.PaidStatus)
	start := l.StartAt.In(loc)

	lines := []string{
		fmt.Sprintf("%s Урок #%d", status.Emoji, l.ID),
		"",
		"👤 " + name,
		fmt.Sprintf("📅 %s %s", FormatDate(start), FormatTimeRange(start, l.EndAt.In(loc))),
		"⏱ " + FormatDuration(l.DurationMinutes),
		"📊 Статус: " + status.Text,
		"💵 Ставка: " + FormatRate(l.HourlyRateAtBookingCents, currency),
		"🧾 Стоимость: " + FormatPrice(pricing.LessonCost(l), currency),
		fmt.Sprintf("%s Оплата: %s (%s), способ: %s",
			paid.Emoji, paid.Text, FormatPrice(l.PaidAmountCents, currency), PaymentMethodName(l.PaymentMethod)),
	}
	if due := pricing.LessonAmountDue(l); due > 0 && l.Status == model.LessonStatusDone {
		lines = append(lines, "❗️ К оплате: "+FormatPrice(due, currency))
	}
	if l.Notes != "" {
		lines = append(lines, "📝 "+l.Notes)
	}
	return strings.Join(lines, "\n")
}
