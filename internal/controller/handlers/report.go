package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_scheduler/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_scheduler/internal/report"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleReport /report [с] [по] [ученик] [статус оплаты] [способ]
// Отправляет сводку текстом и файл Excel с уроками.
func (h *Handlers) HandleReport(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, id, ok := h.requireTeacher(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	raw := reportFilter(commandArgs(update.Message.Text))

	result, err := h.reportService.Export(ctx, id, raw)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, summaryText(result.Summary, h.opts.Currency))
	h.sendDocument(ctx, b, chatID, result.Filename, result.Data, "📊 Отчёт по проведённым урокам")
}

// reportFilter аргументы по порядку; "-" пропускает значение
func reportFilter(args []string) report.RawFilter {
	return report.RawFilter{
		From:          argOrEmpty(args, 0),
		To:            argOrEmpty(args, 1),
		StudentID:     argOrEmpty(args, 2),
		PaidStatus:    argOrEmpty(args, 3),
		PaymentMethod: argOrEmpty(args, 4),
	}
}

func summaryText(s report.Summary, currency string) string {
	var sb strings.Builder

	sb.WriteString("📊 Отчёт\n")
	for _, w := range s.Warnings {
		fmt.Fprintf(&sb, "⚠️ Фильтр %s=%q пропущен: %s\n", w.Field, w.Value, w.Message)
	}

	if s.Totals.Count == 0 {
		sb.WriteString("\nПроведённых уроков не найдено.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nВсего: %d %s, %.2f ч, %s\n",
		s.Totals.Count, formatting.PluralizeLessons(s.Totals.Count),
		s.Totals.Hours, formatting.FormatPrice(s.Totals.CostCents, currency),
	)

	sb.WriteString("\nПо ученикам:\n")
	for _, st := range s.Students {
		fmt.Fprintf(&sb, "• %s: %d %s, %.2f ч, %s\n",
			st.Name, st.Count, formatting.PluralizeLessons(st.Count),
			st.Hours, formatting.FormatPrice(st.CostCents, currency),
		)
	}

	return strings.TrimRight(sb.String(), "\n")
}
