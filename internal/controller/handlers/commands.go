package handlers

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	teacherHelp = "Для учителей:\n" +
		"/lessons - Активные и неотмеченные уроки\n" +
		"/week [дд.мм.гггг] - Расписание недели картинкой\n" +
		"/newlesson <ученик> <дд.мм.гггг> <чч:мм> [минуты] [ставка] - Записать урок\n" +
		"/reschedule <урок> <дд.мм.гггг> <чч:мм> <чч:мм> - Перенести урок\n" +
		"/done <урок> - Урок проведён\n" +
		"/cancel <урок> - Отменить урок\n" +
		"/paid <урок> <способ|none> - Способ оплаты (cash, bit, paybox, bank_transfer, credit_card)\n" +
		"/payment <урок> <сумма> - Внести оплату\n" +
		"/report [с] [по] [ученик] [статус оплаты] [способ] - Отчёт в Excel (даты гггг-мм-дд, '-' пропускает)\n" +
		"/students - Мои ученики\n" +
		"/rate <ученик> <сумма> - Ставка ученика (0 - по умолчанию)\n" +
		"/grade <ученик> <1-12> [школа] - Класс ученика\n" +
		"/materials <ученик> - Материалы ученика\n" +
		"/material <ученик> <название> [ссылка] - Добавить материал (файл: отправьте документ с такой подписью)\n" +
		"/delmaterial <материал> - Удалить материал\n"

	studentHelp = "Для учеников:\n" +
		"/lessons - Ближайшие уроки\n" +
		"/week [дд.мм.гггг] - Расписание недели\n" +
		"/materials - Мои материалы\n" +
		"/getmaterial <материал> - Скачать файл\n"

	adminHelp = "Для администратора:\n" +
		"/assign <ученик> <учитель> - Закрепить ученика за учителем\n" +
		"/role <пользователь> <student|teacher|admin> - Сменить роль\n"
)

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From

	// Регистрируем пользователя
	user, err := h.userService.RegisterUser(ctx, from.ID, from.Username, from.FirstName, from.LastName)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, err)
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Это бот репетитора: расписание уроков, оплаты и материалы.\n"+
			"Ваш номер: %d (сообщите его учителю).\n\n%s",
		user.DisplayName(), user.ID, helpFor(user),
	)

	h.sendMessage(ctx, b, update.Message.Chat.ID, welcomeText)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, _, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, "📚 Справка по командам:\n\n"+helpFor(user))
}

func helpFor(u *model.User) string {
	switch u.Role {
	case model.RoleTeacher:
		return teacherHelp
	case model.RoleAdmin:
		return adminHelp
	}
	if u.TeacherID == nil {
		return studentHelp + "\nУ вас пока нет учителя. Попросите администратора закрепить вас."
	}
	return studentHelp
}
