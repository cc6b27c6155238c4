package formatting

import "github.com/Freeeeeet/tutor_scheduler/internal/model"

// StatusDisplay emoji и текст статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

// LessonStatusDisplay урок без статуса показывается как запланированный
func LessonStatusDisplay(status model.LessonStatus) StatusDisplay {
	displays := map[model.LessonStatus]StatusDisplay{
		model.LessonStatusScheduled: {"🗓", "Запланирован"},
		model.LessonStatusDone:      {"✅", "Проведён"},
		model.LessonStatusCancelled: {"❌", "Отменён"},
	}

	if display, ok := displays[status.Normalize()]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

func PaidStatusDisplay(status model.PaidStatus) StatusDisplay {
	displays := map[model.PaidStatus]StatusDisplay{
		model.PaidStatusUnpaid:  {"💸", "Не оплачен"},
		model.PaidStatusPartial: {"🌓", "Частично оплачен"},
		model.PaidStatusPaid:    {"💰", "Оплачен"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Неизвестно"}
}

// PaymentMethodName название способа оплаты
func PaymentMethodName(m *model.PaymentMethod) string {
	if m == nil {
		return "-"
	}
	names := map[model.PaymentMethod]string{
		model.PaymentMethodCash:         "Наличные",
		model.PaymentMethodBit:          "Bit",
		model.PaymentMethodPayBox:       "PayBox",
		model.PaymentMethodBankTransfer: "Банковский перевод",
		model.PaymentMethodCreditCard:   "Кредитная карта",
	}
	if name, ok := names[*m]; ok {
		return name
	}
	return string(*m)
}
