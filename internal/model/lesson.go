package model

import (
	"strings"
	"time"
)

type LessonStatus string

const (
	LessonStatusUnset     LessonStatus = ""          // Старые записи без статуса, считаются запланированными
	LessonStatusScheduled LessonStatus = "scheduled" // Запланировано
	LessonStatusDone      LessonStatus = "done"      // Проведено
	LessonStatusCancelled LessonStatus = "cancelled" // Отменено
)

// IsActive урок ещё не проведён и не отменён (пустой статус тоже активен)
func (s LessonStatus) IsActive() bool {
	return s == LessonStatusUnset || s == LessonStatusScheduled
}

// BlocksSchedule занимает ли урок время: всё кроме отмены
func (s LessonStatus) BlocksSchedule() bool {
	return s != LessonStatusCancelled
}

// Normalize приводит пустой статус к scheduled
func (s LessonStatus) Normalize() LessonStatus {
	if s == LessonStatusUnset {
		return LessonStatusScheduled
	}
	return s
}

type PaidStatus string

const (
	PaidStatusUnpaid  PaidStatus = "unpaid"
	PaidStatusPartial PaidStatus = "partial"
	PaidStatusPaid    PaidStatus = "paid"
)

func ParsePaidStatus(s string) (PaidStatus, bool) {
	switch p := PaidStatus(strings.ToLower(strings.TrimSpace(s))); p {
	case PaidStatusUnpaid, PaidStatusPartial, PaidStatusPaid:
		return p, true
	}
	return "", false
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBit          PaymentMethod = "bit"
	PaymentMethodPayBox       PaymentMethod = "paybox"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
)

// PaymentMethods возвращает все допустимые способы оплаты в порядке отображения
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodBit,
		PaymentMethodPayBox,
		PaymentMethodBankTransfer,
		PaymentMethodCreditCard,
	}
}

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	token := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range PaymentMethods() {
		if m == token {
			return m, true
		}
	}
	return "", false
}

// Party сторона урока, по которой проверяются пересечения
type Party string

const (
	PartyTeacher Party = "teacher"
	PartyStudent Party = "student"
)

type Lesson struct {
	ID                       int64          `json:"id"`
	TeacherID                int64          `json:"teacher_id"`
	StudentID                int64          `json:"student_id"`
	StartAt                  time.Time      `json:"start_at"`
	EndAt                    time.Time      `json:"end_at"`
	DurationMinutes          int            `json:"duration_minutes"`
	Status                   LessonStatus   `json:"status"`
	HourlyRateAtBookingCents int64          `json:"hourly_rate_at_booking_cents"` // Снимок ставки на момент записи
	PaidStatus               PaidStatus     `json:"paid_status"`
	PaidAmountCents          int64          `json:"paid_amount_cents"`
	PaymentMethod            *PaymentMethod `json:"payment_method,omitempty"`
	Notes                    string         `json:"notes"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

func (l *Lesson) IsActive() bool {
	return l.Status.IsActive()
}

func (l *Lesson) BlocksSchedule() bool {
	return l.Status.BlocksSchedule()
}

// PartyID возвращает идентификатор участника урока для указанной стороны
func (l *Lesson) PartyID(p Party) int64 {
	if p == PartyStudent {
		return l.StudentID
	}
	return l.TeacherID
}
