package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

const dateLayout = "2006-01-02"

// RawFilter значения фильтра в том виде, в каком их прислал пользователь
type RawFilter struct {
	From          string
	To            string
	StudentID     string
	PaidStatus    string
	PaymentMethod string
}

// Filter разобранный фильтр отчёта; nil поле значит "без ограничения"
type Filter struct {
	From          *time.Time // включительно
	To            *time.Time // исключительно: день после указанной даты
	StudentID     *int64
	PaidStatus    *model.PaidStatus
	PaymentMethod *model.PaymentMethod
}

// Warning некорректное значение фильтра, которое было отброшено
type Warning struct {
	Field   string
	Value   string
	Message string
}

// ParseFilter разбирает фильтр. Ошибочные значения не прерывают разбор:
// они отбрасываются и возвращаются как предупреждения.
func ParseFilter(raw RawFilter, loc *time.Location) (Filter, []Warning) {
	if loc == nil {
		loc = time.UTC
	}

	var (
		f        Filter
		warnings []Warning
	)

	if v := strings.TrimSpace(raw.From); v != "" {
		if d, err := time.ParseInLocation(dateLayout, v, loc); err == nil {
			f.From = &d
		} else {
			warnings = append(warnings, Warning{Field: "from", Value: v, Message: "invalid start date format"})
		}
	}

	if v := strings.TrimSpace(raw.To); v != "" {
		if d, err := time.ParseInLocation(dateLayout, v, loc); err == nil {
			end := d.AddDate(0, 0, 1)
			f.To = &end
		} else {
			warnings = append(warnings, Warning{Field: "to", Value: v, Message: "invalid end date format"})
		}
	}

	if v := strings.TrimSpace(raw.StudentID); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			f.StudentID = &id
		} else {
			warnings = append(warnings, Warning{Field: "student_id", Value: v, Message: "invalid student id"})
		}
	}

	if v := strings.TrimSpace(raw.PaidStatus); v != "" {
		if ps, ok := model.ParsePaidStatus(v); ok {
			f.PaidStatus = &ps
		} else {
			warnings = append(warnings, Warning{Field: "paid_status", Value: v, Message: "invalid paid status filter"})
		}
	}

	if v := strings.TrimSpace(raw.PaymentMethod); v != "" {
		if pm, ok := model.ParsePaymentMethod(v); ok {
			f.PaymentMethod = &pm
		} else {
			warnings = append(warnings, Warning{Field: "payment_method", Value: v, Message: "invalid payment method filter"})
		}
	}

	return f, warnings
}

// Match проверяет урок по всем активным условиям фильтра
func (f Filter) Match(l *model.Lesson) bool {
	if f.From != nil && l.StartAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !l.StartAt.Before(*f.To) {
		return false
	}
	if f.StudentID != nil && l.StudentID != *f.StudentID {
		return false
	}
	if f.PaidStatus != nil && l.PaidStatus != *f.PaidStatus {
		return false
	}
	if f.PaymentMethod != nil && (l.PaymentMethod == nil || *l.PaymentMethod != *f.PaymentMethod) {
		return false
	}
	return true
}

// IsEmpty true если ни одно условие не задано
func (f Filter) IsEmpty() bool {
	return f.From == nil && f.To == nil && f.StudentID == nil && f.PaidStatus == nil && f.PaymentMethod == nil
}

// Describe человекочитаемые активные условия для шапки отчёта
func (f Filter) Describe() map[string]string {
	out := make(map[string]string)
	if f.From != nil {
		out["from"] = f.From.Format(dateLayout)
	}
	if f.To != nil {
		out["to"] = f.To.AddDate(0, 0, -1).Format(dateLayout)
	}
	if f.StudentID != nil {
		out["student_id"] = strconv.FormatInt(*f.StudentID, 10)
	}
	if f.PaidStatus != nil {
		out["paid_status"] = string(*f.PaidStatus)
	}
	if f.PaymentMethod != nil {
		out["payment_method"] = string(*f.PaymentMethod)
	}
	return out
}
