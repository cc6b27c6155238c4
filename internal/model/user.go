package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole возвращает роль по строке; false если роль неизвестна
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return r, true
	}
	return "", false
}

// User единая запись для учителей, учеников и администраторов.
// Для ученика TeacherID указывает на закреплённого учителя (не более одного).
type User struct {
	ID              int64     `json:"id"`
	TelegramID      *int64    `json:"telegram_id,omitempty"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Role            Role      `json:"role"`
	TeacherID       *int64    `json:"teacher_id,omitempty"`
	HourlyRateCents int64     `json:"hourly_rate_cents"` // 0 = ставка по умолчанию
	Grade           *int      `json:"grade,omitempty"`
	School          string    `json:"school"`
	CreatedAt       time.Time `json:"created_at"`
}

func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// DisplayName возвращает имя для отображения в отчётах и сообщениях
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// BelongsTo проверяет что ученик закреплён за учителем
func (u *User) BelongsTo(teacherID int64) bool {
	return u.TeacherID != nil && *u.TeacherID == teacherID
}
