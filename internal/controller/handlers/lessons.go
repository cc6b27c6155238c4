package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_scheduler/internal/export"
	"github.com/Freeeeeet/tutor_scheduler/internal/lifecycle"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const (
	usageNewLesson  = "/newlesson <ученик> <дд.мм.гггг> <чч:мм> [минуты] [ставка]"
	usageReschedule = "/reschedule <урок> <дд.мм.гггг> <чч:мм> <чч:мм>"
	usagePaid       = "/paid <урок> <cash|bit|paybox|bank_transfer|credit_card|none>"
	usagePayment    = "/payment <урок> <сумма>"
)

// HandleLessons учителю - активные и просроченные уроки, ученику - ближайшие
func (h *Handlers) HandleLessons(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, id, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	if !user.IsTeacher() {
		lessons, err := h.lessonService.Upcoming(ctx, id)
		if err != nil {
			h.sendError(ctx, b, chatID, err)
			return
		}
		if len(lessons) == 0 {
			h.sendMessage(ctx, b, chatID, "📭 Ближайших уроков нет.")
			return
		}
		h.sendMessage(ctx, b, chatID, "📅 Ближайшие уроки:\n\n"+h.lessonList(ctx, lessons, model.PartyTeacher))
		return
	}

	dashboard, err := h.lessonService.TeacherDashboard(ctx, id)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	var sb strings.Builder
	if len(dashboard.PastDue) > 0 {
		sb.WriteString("⏰ Прошли, но не отмечены:\n")
		sb.WriteString(h.lessonList(ctx, dashboard.PastDue, model.PartyStudent))
		sb.WriteString("\n\n")
	}
	if len(dashboard.Lessons) == 0 {
		sb.WriteString("📭 Активных уроков нет. Записать: " + usageNewLesson)
	} else {
		fmt.Fprintf(&sb, "📅 Активные уроки (%d %s):\n", len(dashboard.Lessons), formatting.PluralizeLessons(len(dashboard.Lessons)))
		sb.WriteString(h.lessonList(ctx, dashboard.Lessons, model.PartyStudent))
	}

	h.sendMessage(ctx, b, chatID, sb.String())
}

// HandleWeek картинка недели; без аргумента - текущая неделя
func (h *Handlers) HandleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	day := h.opts.Now().In(h.opts.Location)
	if args := commandArgs(update.Message.Text); len(args) > 0 {
		d, err := parseDate(args[0], h.opts.Location)
		if err != nil {
			h.sendError(ctx, b, chatID, err)
			return
		}
		day = d
	}

	img, err := h.reportService.WeekImage(ctx, id, day)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendPhoto(ctx, b, chatID, "week.png", img, "🗓 Неделя с "+formatting.FormatDate(export.WeekStart(day)))
}

// HandleNewLesson /newlesson <ученик> <дд.мм.гггг> <чч:мм> [минуты] [ставка]
func (h *Handlers) HandleNewLesson(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	in, err := parseNewLesson(commandArgs(update.Message.Text), h.opts.Location)
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageNewLesson)
		return
	}

	lesson, err := h.lessonService.Create(ctx, id, in)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendCard(ctx, b, chatID, "✅ Урок записан", lesson)
}

// HandleReschedule /reschedule <урок> <дд.мм.гггг> <чч:мм> <чч:мм>
func (h *Handlers) HandleReschedule(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	lessonID, start, end, err := parseReschedule(commandArgs(update.Message.Text), h.opts.Location)
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usageReschedule)
		return
	}

	lesson, err := h.lessonService.Reschedule(ctx, id, lessonID, start, end)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendCard(ctx, b, chatID, "🔁 Урок перенесён", lesson)
}

// HandleDone /done <урок>
func (h *Handlers) HandleDone(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleTransition(ctx, b, update, "/done <урок>", "✅ Урок отмечен проведённым", "ℹ️ Урок уже отмечен проведённым",
		func(ctx context.Context, id authz.Identity, lessonID int64) (*model.Lesson, lifecycle.Outcome, error) {
			return h.lessonService.MarkDone(ctx, id, lessonID)
		})
}

// HandleCancel /cancel <урок>
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleTransition(ctx, b, update, "/cancel <урок>", "❌ Урок отменён", "ℹ️ Урок уже отменён",
		func(ctx context.Context, id authz.Identity, lessonID int64) (*model.Lesson, lifecycle.Outcome, error) {
			return h.lessonService.Cancel(ctx, id, lessonID)
		})
}

// HandlePaid /paid <урок> <способ|none>
func (h *Handlers) HandlePaid(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	args := commandArgs(update.Message.Text)
	if len(args) != 2 {
		h.sendUsage(ctx, b, update.Message.Chat.ID, usagePaid)
		return
	}
	method, err := parsePaymentMethod(args[1])
	if err != nil {
		h.replyParseError(ctx, b, update.Message.Chat.ID, err, usagePaid)
		return
	}

	h.handleTransition(ctx, b, update, usagePaid, "💰 Оплата обновлена", "ℹ️ Без изменений",
		func(ctx context.Context, id authz.Identity, lessonID int64) (*model.Lesson, lifecycle.Outcome, error) {
			return h.lessonService.SetPaymentMethod(ctx, id, lessonID, method)
		})
}

// HandlePayment /payment <урок> <сумма>
func (h *Handlers) HandlePayment(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 2 {
		h.sendUsage(ctx, b, chatID, usagePayment)
		return
	}
	lessonID, err := parseID(args[0], "lesson_id")
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usagePayment)
		return
	}
	amount, err := parseAmount(args[1], "amount")
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usagePayment)
		return
	}

	lesson, err := h.lessonService.RecordPayment(ctx, id, lessonID, amount)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendCard(ctx, b, chatID, "💵 Оплата внесена", lesson)
}

type transitionFunc func(ctx context.Context, id authz.Identity, lessonID int64) (*model.Lesson, lifecycle.Outcome, error)

func (h *Handlers) handleTransition(ctx context.Context, b *bot.Bot, update *models.Update, usage, applied, noop string, fn transitionFunc) {
	_, id, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) == 0 {
		h.sendUsage(ctx, b, chatID, usage)
		return
	}
	lessonID, err := parseID(args[0], "lesson_id")
	if err != nil {
		h.replyParseError(ctx, b, chatID, err, usage)
		return
	}

	lesson, outcome, err := fn(ctx, id, lessonID)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	text := applied
	if outcome == lifecycle.NoOp {
		text = noop
	}
	h.sendCard(ctx, b, chatID, text, lesson)
}

func (h *Handlers) replyParseError(ctx context.Context, b *bot.Bot, chatID int64, err error, usage string) {
	if errors.Is(err, errUsage) {
		h.sendUsage(ctx, b, chatID, usage)
		return
	}
	h.sendMessage(ctx, b, chatID, ErrorMessage(err, h.opts.Location)+"\n\nℹ️ Формат: "+usage)
}

// lessonList строки уроков с именем второй стороны
func (h *Handlers) lessonList(ctx context.Context, lessons []*model.Lesson, nameOf model.Party) string {
	ids := make([]int64, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.PartyID(nameOf))
	}
	names := h.names(ctx, ids)

	lines := make([]string, 0, len(lessons))
	for _, l := range lessons {
		lines = append(lines, formatting.LessonLine(l, nameFor(names, l.PartyID(nameOf)), h.opts.Location, h.opts.Currency))
	}
	return strings.Join(lines, "\n")
}

func (h *Handlers) lessonCard(ctx context.Context, l *model.Lesson) string {
	names := h.names(ctx, []int64{l.StudentID})
	return formatting.LessonCard(l, nameFor(names, l.StudentID), h.opts.Location, h.opts.Currency)
}

// names ошибка загрузки имён не мешает ответу, показываем номера
func (h *Handlers) names(ctx context.Context, ids []int64) map[int64]string {
	names, err := h.userService.Names(ctx, ids)
	if err != nil {
		h.logger.Warn("Failed to load names", zap.Error(err))
		return map[int64]string{}
	}
	return names
}

func nameFor(names map[int64]string, id int64) string {
	if n := names[id]; n != "" {
		return n
	}
	return "#" + strconv.FormatInt(id, 10)
}

func parseNewLesson(args []string, loc *time.Location) (service.CreateLessonInput, error) {
	var in service.CreateLessonInput
	if len(args) < 3 || len(args) > 5 {
		return in, errUsage
	}

	studentID, err := parseID(args[0], "student_id")
	if err != nil {
		return in, err
	}
	start, err := parseDateTime(args[1], args[2], loc)
	if err != nil {
		return in, err
	}
	in.StudentID = studentID
	in.StartAt = start

	if v := argOrEmpty(args, 3); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return in, apperr.NewValidation("duration_minutes", "must be a positive number of minutes")
		}
		in.DurationMinutes = minutes
	}
	if v := argOrEmpty(args, 4); v != "" {
		rate, err := parseAmount(v, "hourly_rate")
		if err != nil {
			return in, err
		}
		in.HourlyRateCents = rate
	}
	return in, nil
}

func parseReschedule(args []string, loc *time.Location) (int64, time.Time, time.Time, error) {
	if len(args) != 4 {
		return 0, time.Time{}, time.Time{}, errUsage
	}
	lessonID, err := parseID(args[0], "lesson_id")
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	start, err := parseDateTime(args[1], args[2], loc)
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	end, err := parseDateTime(args[1], args[3], loc)
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	return lessonID, start, end, nil
}
