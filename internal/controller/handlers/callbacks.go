package handlers

import (
	"context"
	"strconv"

	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_scheduler/internal/controller/keyboard"
	"github.com/Freeeeeet/tutor_scheduler/internal/lifecycle"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Callback data кнопок под карточкой урока
const (
	CallbackLessonDone   = "lesson_done"   // lesson_done:id
	CallbackLessonCancel = "lesson_cancel" // lesson_cancel:id
	CallbackLessonPay    = "lesson_pay"    // lesson_pay:id:method, method=none сбрасывает
)

const noPaymentMethod = "none"

// lessonKeyboard кнопки для карточки урока; nil если действий нет
func lessonKeyboard(l *model.Lesson) models.ReplyMarkup {
	id := strconv.FormatInt(l.ID, 10)
	kb := keyboard.NewBuilder()

	switch l.Status.Normalize() {
	case model.LessonStatusScheduled:
		kb.Row(
			keyboard.Button("✅ Проведён", keyboard.Data(CallbackLessonDone, id)),
			keyboard.Button("❌ Отменить", keyboard.Data(CallbackLessonCancel, id)),
		)
	case model.LessonStatusDone:
		row := make([]models.InlineKeyboardButton, 0, 3)
		for _, m := range model.PaymentMethods() {
			if l.PaymentMethod != nil && *l.PaymentMethod == m {
				continue
			}
			pm := m
			row = append(row, keyboard.Button("💳 "+formatting.PaymentMethodName(&pm), keyboard.Data(CallbackLessonPay, id, string(m))))
			if len(row) == 3 {
				kb.Row(row...)
				row = make([]models.InlineKeyboardButton, 0, 3)
			}
		}
		if l.PaymentMethod != nil {
			row = append(row, keyboard.Button("↩️ Без оплаты", keyboard.Data(CallbackLessonPay, id, noPaymentMethod)))
		}
		kb.Row(row...)
	}

	if kb.Len() == 0 {
		return nil
	}
	return kb.Build()
}

// HandleCallback обрабатывает нажатия на кнопки карточки урока
func (h *Handlers) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	h.logger.Info("Routing callback",
		zap.String("data", cb.Data),
		zap.Int64("user_id", cb.From.ID),
	)

	msg := cb.Message.Message
	if msg == nil {
		h.answerCallback(ctx, b, cb.ID, "⌛️ Сообщение устарело", true)
		return
	}

	user, err := h.userService.GetByTelegramID(ctx, cb.From.ID)
	if err != nil || user == nil {
		h.answerCallback(ctx, b, cb.ID, "❌ Пользователь не найден. Используйте /start", true)
		return
	}
	id := authz.IdentityOf(user)

	prefix, args := keyboard.Parse(cb.Data)
	lessonID, err := keyboard.ParseID(args, 0)
	if err != nil {
		h.logger.Warn("Bad callback data", zap.String("data", cb.Data), zap.Error(err))
		h.answerCallback(ctx, b, cb.ID, "❌ Неверный формат", true)
		return
	}

	var (
		lesson  *model.Lesson
		outcome lifecycle.Outcome
	)
	switch prefix {
	case CallbackLessonDone:
		lesson, outcome, err = h.lessonService.MarkDone(ctx, id, lessonID)
	case CallbackLessonCancel:
		lesson, outcome, err = h.lessonService.Cancel(ctx, id, lessonID)
	case CallbackLessonPay:
		var method *model.PaymentMethod
		if len(args) > 1 {
			method, err = parsePaymentMethod(args[1])
		}
		if err == nil {
			lesson, outcome, err = h.lessonService.SetPaymentMethod(ctx, id, lessonID, method)
		}
	default:
		h.logger.Warn("Unknown callback", zap.String("data", cb.Data))
		h.answerCallback(ctx, b, cb.ID, "", false)
		return
	}

	if err != nil {
		h.logUnexpected(cb.From.ID, err)
		h.answerCallback(ctx, b, cb.ID, ErrorMessage(err, h.opts.Location), true)
		return
	}

	note := "✅ Готово"
	if outcome == lifecycle.NoOp {
		note = "ℹ️ Без изменений"
	}
	h.answerCallback(ctx, b, cb.ID, note, false)

	_, err = b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        h.lessonCard(ctx, lesson),
		ReplyMarkup: lessonKeyboard(lesson),
	})
	if err != nil {
		h.logger.Warn("Failed to edit lesson card", zap.Int64("lesson_id", lesson.ID), zap.Error(err))
	}
}

func (h *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}
