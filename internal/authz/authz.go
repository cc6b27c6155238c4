// Package authz принимает решения о доступе по явно переданной личности запроса.
package authz

import (
	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// Identity пользователь, от имени которого выполняется операция
type Identity struct {
	UserID int64
	Role   model.Role
}

func IdentityOf(u *model.User) Identity {
	return Identity{UserID: u.ID, Role: u.Role}
}

// Decision результат проверки доступа
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Err превращает запрет в OwnershipError
func (d Decision) Err(id Identity, action string) error {
	if d.Allowed {
		return nil
	}
	return &apperr.OwnershipError{Action: action, UserID: id.UserID, Reason: d.Reason}
}

// RequireRole разрешает только указанные роли
func RequireRole(id Identity, roles ...model.Role) Decision {
	for _, r := range roles {
		if id.Role == r {
			return allow()
		}
	}
	return deny("role " + string(id.Role) + " is not permitted")
}

// CanManageLesson изменять урок может только его учитель
func CanManageLesson(id Identity, l *model.Lesson) Decision {
	if id.Role != model.RoleTeacher {
		return deny("only teachers can change lessons")
	}
	if l.TeacherID != id.UserID {
		return deny("lesson belongs to another teacher")
	}
	return allow()
}

// CanBookFor учитель записывает только своих учеников
func CanBookFor(id Identity, student *model.User) Decision {
	if id.Role != model.RoleTeacher {
		return deny("only teachers can book lessons")
	}
	if !student.IsStudent() || !student.BelongsTo(id.UserID) {
		return deny("student is not assigned to this teacher")
	}
	return allow()
}

// CanViewLesson учитель урока, ученик урока или администратор
func CanViewLesson(id Identity, l *model.Lesson) Decision {
	switch {
	case id.Role == model.RoleAdmin:
		return allow()
	case id.Role == model.RoleTeacher && l.TeacherID == id.UserID:
		return allow()
	case id.Role == model.RoleStudent && l.StudentID == id.UserID:
		return allow()
	}
	return deny("lesson is not visible to this user")
}

// CanManageStudent закреплённый учитель или администратор
func CanManageStudent(id Identity, student *model.User) Decision {
	if id.Role == model.RoleAdmin {
		return allow()
	}
	if id.Role == model.RoleTeacher && student.BelongsTo(id.UserID) {
		return allow()
	}
	return deny("student is not assigned to this teacher")
}

// CanReadMaterial учитель-владелец или ученик, которому выдан материал
func CanReadMaterial(id Identity, m *model.Material) Decision {
	switch {
	case id.Role == model.RoleTeacher && m.TeacherID == id.UserID:
		return allow()
	case id.Role == model.RoleStudent && m.StudentID == id.UserID:
		return allow()
	}
	return deny("material is not available to this user")
}

// CanManageMaterial удалять материал может только учитель-владелец
func CanManageMaterial(id Identity, m *model.Material) Decision {
	if id.Role == model.RoleTeacher && m.TeacherID == id.UserID {
		return allow()
	}
	return deny("material belongs to another teacher")
}
