package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	usageRate   = "/rate <ученик> <сумма>"
	usageGrade  = "/grade <ученик> <1-12> [школа]"
	usageAssign = "/assign <ученик> <учитель>"
	usageRole   = "/role <пользователь> <student|teacher|admin>"
)

// HandleStudents список учеников учителя
func (h *Handlers) HandleStudents(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	students, err := h.studentService.ListStudents(ctx, id)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	if len(students) == 0 {
		h.sendMessage(ctx, b, chatID, "👥 У вас пока нет учеников.\n\nУченик получает номер после /start, администратор закрепляет его командой /assign.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Ваши ученики (%d %s):\n\n", len(students), formatting.PluralizeStudents(len(students)))
	for _, s := range students {
		sb.WriteString(studentLine(s, h.opts.Currency))
		sb.WriteString("\n")
	}

	h.sendMessage(ctx, b, chatID, strings.TrimRight(sb.String(), "\n"))
}

func studentLine(s *model.User, currency string) string {
	line := fmt.Sprintf("#%d %s", s.ID, s.DisplayName())
	if s.Grade != nil {
		line += fmt.Sprintf(", %d класс", *s.Grade)
	}
	if s.School != "" {
		line += ", " + s.School
	}
	if s.HourlyRateCents > 0 {
		line += ", " + formatting.FormatRate(s.HourlyRateCents, currency)
	}
	return line
}

// HandleRate /rate <ученик> <сумма>; 0 возвращает ставку по умолчанию
func (h *Handlers) HandleRate(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 2 {
		h.sendUsage(ctx, b, chatID, usageRate)
		return
	}
	studentID, err := parseID(args[0], "student_id")
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageRate)
		return
	}
	rate, err := parseAmount(args[1], "hourly_rate")
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageRate)
		return
	}

	if err := h.studentService.SetRate(ctx, id, studentID, rate); err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	if rate == 0 {
		h.sendMessage(ctx, b, chatID, "✅ Для ученика используется ставка по умолчанию")
		return
	}
	h.sendMessage(ctx, b, chatID, "✅ Ставка обновлена: "+formatting.FormatRate(rate, h.opts.Currency))
}

// HandleGrade /grade <ученик> <1-12> [школа]
func (h *Handlers) HandleGrade(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) < 2 {
		h.sendUsage(ctx, b, chatID, usageGrade)
		return
	}
	studentID, err := parseID(args[0], "student_id")
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageGrade)
		return
	}
	grade, err := strconv.Atoi(args[1])
	if err != nil {
		h.replyParseError(ctx, b, chatID, apperr.NewValidation("grade", "must be a number"), usageGrade)
		return
	}
	school := strings.Join(args[2:], " ")

	if err := h.studentService.SetGrade(ctx, id, studentID, &grade, school); err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Ученик #%d: %d класс", studentID, grade))
}

// HandleAssign /assign <ученик> <учитель>, только администратор
func (h *Handlers) HandleAssign(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 2 {
		h.sendUsage(ctx, b, chatID, usageAssign)
		return
	}
	studentID, err := parseID(args[0], "student_id")
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageAssign)
		return
	}
	teacherID, err := parseID(args[1], "teacher_id")
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageAssign)
		return
	}

	if err := h.studentService.AssignTeacher(ctx, id, studentID, teacherID); err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Ученик #%d закреплён за учителем #%d", studentID, teacherID))
}

// HandleRole /role <пользователь> <роль>, только администратор
func (h *Handlers) HandleRole(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 2 {
		h.sendUsage(ctx, b, chatID, usageRole)
		return
	}
	userID, err := parseID(args[0], "user_id")
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageRole)
		return
	}
	role, ok := model.ParseRole(args[1])
	if !ok {
		h.replyParseError(ctx, b, chatID, apperr.NewValidation("role", "one of student, teacher, admin"), usageRole)
		return
	}

	if err := h.userService.SetRole(ctx, id, userID, role); err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Пользователь #%d: роль %s", userID, role))
}
