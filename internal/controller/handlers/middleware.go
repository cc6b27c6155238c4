package handlers

import (
	"bytes"
	"context"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/observability"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// requireUser находит пользователя по Telegram ID и возвращает его личность для сервисов
// Возвращает user и true если OK, nil и false если нет
func (h *Handlers) requireUser(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, authz.Identity, bool) {
	if update.Message == nil || update.Message.From == nil {
		return nil, authz.Identity{}, false
	}

	telegramID := update.Message.From.ID
	user, err := h.userService.GetByTelegramID(ctx, telegramID)

	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, err)
		return nil, authz.Identity{}, false
	}

	if user == nil {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Пользователь не найден. Используйте /start для регистрации.")
		return nil, authz.Identity{}, false
	}

	return user, authz.IdentityOf(user), true
}

// requireTeacher проверяет что пользователь является учителем
func (h *Handlers) requireTeacher(ctx context.Context, b *bot.Bot, update *models.Update) (*model.User, authz.Identity, bool) {
	user, id, ok := h.requireUser(ctx, b, update)
	if !ok {
		return nil, id, false
	}

	if !user.IsTeacher() {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Эта команда доступна только учителям.")
		return nil, id, false
	}

	return user, id, true
}

// sendError отвечает текстом по типу ошибки; неожиданные ошибки уходят в Sentry
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, err error) {
	h.logUnexpected(chatID, err)
	h.sendMessage(ctx, b, chatID, ErrorMessage(err, h.opts.Location))
}

func (h *Handlers) logUnexpected(chatID int64, err error) {
	if apperr.IsExpected(err) {
		return
	}
	observability.CaptureErr(err)
	h.logger.Error("Command failed", zap.Int64("chat_id", chatID), zap.Error(err))
}

// sendUsage подсказка по формату команды
func (h *Handlers) sendUsage(ctx context.Context, b *bot.Bot, chatID int64, usage string) {
	h.sendMessage(ctx, b, chatID, "ℹ️ Формат: "+usage)
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// sendCard карточка урока с кнопками действий
func (h *Handlers) sendCard(ctx context.Context, b *bot.Bot, chatID int64, title string, l *model.Lesson) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        title + "\n\n" + h.lessonCard(ctx, l),
		ReplyMarkup: lessonKeyboard(l),
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Int64("lesson_id", l.ID),
			zap.Error(err),
		)
	}
}

func (h *Handlers) sendDocument(ctx context.Context, b *bot.Bot, chatID int64, filename string, data []byte, caption string) {
	_, err := b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
		Caption:  caption,
	})
	if err != nil {
		h.logger.Error("Failed to send document",
			zap.Int64("chat_id", chatID),
			zap.String("filename", filename),
			zap.Error(err),
		)
	}
}

func (h *Handlers) sendPhoto(ctx context.Context, b *bot.Bot, chatID int64, filename string, data []byte, caption string) {
	_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
		Caption: caption,
	})
	if err != nil {
		h.logger.Error("Failed to send photo", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
