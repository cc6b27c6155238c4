package apperr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("not found")

// FieldError ошибка конкретного поля входных данных
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError некорректные входные данные, ничего не изменено
type ValidationError struct {
	Fields []FieldError
}

func NewValidation(field, reason string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field возвращает первое поле с ошибкой
func (e *ValidationError) Field() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Field
}

// ConflictError пересечение с активным уроком учителя или ученика
type ConflictError struct {
	Side     model.Party // пусто, если ограничение БД не опознано
	LessonID int64       // 0 если конфликт обнаружен ограничением БД
	Start    time.Time
	End      time.Time
}

func (e *ConflictError) Error() string {
	if e.Side == "" {
		return "schedule conflict"
	}
	if e.LessonID == 0 {
		return fmt.Sprintf("%s schedule conflict", e.Side)
	}
	return fmt.Sprintf("%s schedule conflict with lesson %d (%s - %s)",
		e.Side, e.LessonID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// OwnershipError у пользователя нет прав на действие
type OwnershipError struct {
	Action string
	UserID int64
	Reason string
}

func (e *OwnershipError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("user %d is not allowed to %s", e.UserID, e.Action)
	}
	return fmt.Sprintf("user %d is not allowed to %s: %s", e.UserID, e.Action, e.Reason)
}

// UnavailableError хранилище недоступно
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: storage unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsOwnership(err error) bool {
	var target *OwnershipError
	return errors.As(err, &target)
}

func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsExpected true для ошибок бизнес-логики, которые не нужно отправлять в Sentry
func IsExpected(err error) bool {
	return IsValidation(err) || IsConflict(err) || IsOwnership(err) || IsNotFound(err)
}
