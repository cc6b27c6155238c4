// Package lifecycle содержит переходы состояний урока. Функции не обращаются к
// хранилищу и не проверяют пересечения: это делает сервис в транзакции.
package lifecycle

import (
	"math"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/pricing"
)

// DefaultDurationMinutes длительность, если не задан ни конец, ни длительность
const DefaultDurationMinutes = 60

// Outcome результат идемпотентного перехода
type Outcome int

const (
	Applied Outcome = iota
	NoOp
)

func (o Outcome) String() string {
	if o == NoOp {
		return "noop"
	}
	return "applied"
}

// NewParams входные данные для создания урока
type NewParams struct {
	TeacherID       int64
	StudentID       int64
	StartAt         time.Time
	EndAt           time.Time // нулевое значение = StartAt + длительность
	DurationMinutes int
	RateCents       int64 // уже выбранная ставка (pricing.DeriveRate)
	Notes           string
}

// New собирает новый урок: начало строго в будущем, конец после начала,
// статус scheduled, снимок ставки, не оплачен.
func New(p NewParams, now time.Time) (*model.Lesson, error) {
	if p.TeacherID == 0 {
		return nil, apperr.NewValidation("teacher_id", "required")
	}
	if p.StudentID == 0 {
		return nil, apperr.NewValidation("student_id", "required")
	}
	if p.DurationMinutes < 0 {
		return nil, apperr.NewValidation("duration_minutes", "must be positive")
	}
	if p.RateCents <= 0 {
		return nil, apperr.NewValidation("hourly_rate", "must be positive")
	}

	end := p.EndAt
	duration := p.DurationMinutes
	if end.IsZero() {
		if duration == 0 {
			duration = DefaultDurationMinutes
		}
		end = p.StartAt.Add(time.Duration(duration) * time.Minute)
	}

	if err := validateWindow(p.StartAt, end, now); err != nil {
		return nil, err
	}
	if duration == 0 {
		duration = minutesBetween(p.StartAt, end)
	}

	return &model.Lesson{
		TeacherID:                p.TeacherID,
		StudentID:                p.StudentID,
		StartAt:                  p.StartAt,
		EndAt:                    end,
		DurationMinutes:          duration,
		Status:                   model.LessonStatusScheduled,
		HourlyRateAtBookingCents: p.RateCents,
		PaidStatus:               model.PaidStatusUnpaid,
		PaidAmountCents:          0,
		Notes:                    p.Notes,
	}, nil
}

// Reschedule переносит урок. Снимок ставки не трогается, длительность
// пересчитывается только если раньше не была задана.
func Reschedule(l *model.Lesson, start, end time.Time, now time.Time) error {
	if !l.IsActive() {
		return apperr.NewValidation("status", "only scheduled lessons can be rescheduled")
	}
	if err := validateWindow(start, end, now); err != nil {
		return err
	}

	l.StartAt = start
	l.EndAt = end
	if l.DurationMinutes <= 0 {
		l.DurationMinutes = minutesBetween(start, end)
	}
	l.Status = l.Status.Normalize()
	return nil
}

// MarkDone повторный вызов ничего не меняет; отменённый урок провести нельзя
func MarkDone(l *model.Lesson) (Outcome, error) {
	switch l.Status {
	case model.LessonStatusDone:
		return NoOp, nil
	case model.LessonStatusCancelled:
		return NoOp, apperr.NewValidation("status", "cancelled lesson cannot be marked done")
	}
	l.Status = model.LessonStatusDone
	return Applied, nil
}

// Cancel отмена уже отменённого урока возвращает NoOp
func Cancel(l *model.Lesson) Outcome {
	if l.Status == model.LessonStatusCancelled {
		return NoOp
	}
	l.Status = model.LessonStatusCancelled
	return Applied
}

// SetPaymentMethod выбор способа оплаты означает полную оплату,
// сброс (nil) возвращает урок в unpaid.
func SetPaymentMethod(l *model.Lesson, method *model.PaymentMethod) Outcome {
	if method == nil {
		if l.PaymentMethod == nil && l.PaidStatus == model.PaidStatusUnpaid && l.PaidAmountCents == 0 {
			return NoOp
		}
		l.PaymentMethod = nil
		l.PaidStatus = model.PaidStatusUnpaid
		l.PaidAmountCents = 0
		return Applied
	}

	cost := pricing.LessonCost(l)
	if l.PaymentMethod != nil && *l.PaymentMethod == *method &&
		l.PaidStatus == model.PaidStatusPaid && l.PaidAmountCents == cost {
		return NoOp
	}
	m := *method
	l.PaymentMethod = &m
	l.PaidStatus = model.PaidStatusPaid
	l.PaidAmountCents = cost
	return Applied
}

// RecordPayment добавляет внесённую сумму и пересчитывает статус оплаты
func RecordPayment(l *model.Lesson, amountCents int64) error {
	if amountCents <= 0 {
		return apperr.NewValidation("amount", "must be positive")
	}
	l.PaidAmountCents += amountCents
	l.PaidStatus = pricing.StatusFor(pricing.LessonCost(l), l.PaidAmountCents)
	return nil
}

func validateWindow(start, end, now time.Time) error {
	if start.IsZero() {
		return apperr.NewValidation("start_at", "required")
	}
	if !start.After(now) {
		return apperr.NewValidation("start_at", "must be in the future")
	}
	if !end.After(start) {
		return apperr.NewValidation("end_at", "must be after start")
	}
	return nil
}

func minutesBetween(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Minutes()))
}
