package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

var fieldLabels = map[string]string{
	"start_at":         "начало",
	"end_at":           "конец",
	"student_id":       "ученик",
	"teacher_id":       "учитель",
	"hourly_rate":      "ставка",
	"duration_minutes": "длительность",
	"status":           "статус",
	"amount":           "сумма",
	"lesson_id":        "урок",
	"title":            "название",
	"file":             "файл",
	"link_url":         "ссылка",
	"grade":            "класс",
	"role":             "роль",
	"user_id":          "пользователь",
	"material_id":      "материал",
	"date":             "дата",
	"time":             "время",
	"payment_method":   "способ оплаты",
}

// ErrorMessage текст для пользователя по типу ошибки
func ErrorMessage(err error, loc *time.Location) string {
	var (
		verr     *apperr.ValidationError
		conflict *apperr.ConflictError
	)

	switch {
	case errors.As(err, &verr):
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			label := fieldLabels[f.Field]
			if label == "" {
				label = f.Field
			}
			parts = append(parts, fmt.Sprintf("%s: %s", label, f.Reason))
		}
		return "❌ Проверьте данные\n" + strings.Join(parts, "\n")
	case errors.As(err, &conflict):
		return conflictMessage(conflict, loc)
	case apperr.IsOwnership(err):
		return "🚫 У вас нет доступа к этому действию"
	case apperr.IsNotFound(err):
		return "❌ Не найдено"
	case apperr.IsUnavailable(err):
		return "⚠️ Сервис временно недоступен. Попробуйте позже."
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}

func conflictMessage(c *apperr.ConflictError, loc *time.Location) string {
	who := "Время уже занято"
	switch c.Side {
	case model.PartyTeacher:
		who = "У учителя уже есть урок в это время"
	case model.PartyStudent:
		who = "У ученика уже есть урок в это время"
	}
	if c.LessonID == 0 {
		return "⛔️ " + who + ". Выберите другое время."
	}
	return fmt.Sprintf("⛔️ %s: урок #%d, %s %s. Выберите другое время.",
		who, c.LessonID,
		formatting.FormatDate(c.Start.In(loc)),
		formatting.FormatTimeRange(c.Start.In(loc), c.End.In(loc)),
	)
}
