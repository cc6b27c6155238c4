package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"go.uber.org/zap"
)

type StudentService struct {
	userRepo UserStore
	logger   *zap.Logger
}

func NewStudentService(userRepo UserStore, logger *zap.Logger) *StudentService {
	return &StudentService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// ListStudents ученики, закреплённые за учителем
func (s *StudentService) ListStudents(ctx context.Context, id authz.Identity) ([]*model.User, error) {
	if err := authz.RequireRole(id, model.RoleTeacher).Err(id, "list students"); err != nil {
		return nil, err
	}

	students, err := s.userRepo.ListStudentsOfTeacher(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// AssignTeacher закрепляет ученика за учителем. У ученика может быть только
// один учитель, новое закрепление заменяет старое.
func (s *StudentService) AssignTeacher(ctx context.Context, id authz.Identity, studentID, teacherID int64) error {
	if err := authz.RequireRole(id, model.RoleAdmin).Err(id, "assign teacher"); err != nil {
		return err
	}

	student, err := s.getStudent(ctx, studentID)
	if err != nil {
		return err
	}

	teacher, err := s.userRepo.GetByID(ctx, teacherID)
	if err != nil {
		return fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil || !teacher.IsTeacher() {
		return apperr.NewValidation("teacher_id", "unknown teacher")
	}
	if student.BelongsTo(teacherID) {
		return nil
	}

	if err := s.userRepo.SetTeacher(ctx, studentID, &teacherID); err != nil {
		return fmt.Errorf("set teacher: %w", err)
	}

	s.logger.Info("Student assigned",
		zap.Int64("student_id", studentID),
		zap.Int64("teacher_id", teacherID),
	)
	return nil
}

// SetRate меняет ставку ученика по умолчанию. 0 сбрасывает на ставку учителя.
func (s *StudentService) SetRate(ctx context.Context, id authz.Identity, studentID, rateCents int64) error {
	if rateCents < 0 {
		return apperr.NewValidation("hourly_rate", "must not be negative")
	}

	student, err := s.getStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if err := authz.CanManageStudent(id, student).Err(id, "set student rate"); err != nil {
		return err
	}

	if err := s.userRepo.SetRate(ctx, studentID, rateCents); err != nil {
		return fmt.Errorf("set rate: %w", err)
	}

	s.logger.Info("Student rate changed",
		zap.Int64("student_id", studentID),
		zap.Int64("rate_cents", rateCents),
	)
	return nil
}

// SetGrade класс ученика (1-12), nil очищает
func (s *StudentService) SetGrade(ctx context.Context, id authz.Identity, studentID int64, grade *int, school string) error {
	if grade != nil && (*grade < 1 || *grade > 12) {
		return apperr.NewValidation("grade", "must be between 1 and 12")
	}

	student, err := s.getStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if err := authz.CanManageStudent(id, student).Err(id, "set student grade"); err != nil {
		return err
	}

	student.Grade = grade
	student.School = school
	if err := s.userRepo.Update(ctx, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

func (s *StudentService) getStudent(ctx context.Context, studentID int64) (*model.User, error) {
	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil || !student.IsStudent() {
		return nil, fmt.Errorf("student %d: %w", studentID, apperr.ErrNotFound)
	}
	return student, nil
}
