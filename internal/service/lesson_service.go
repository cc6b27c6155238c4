package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/lifecycle"
	"github.com/Freeeeeet/tutor_scheduler/internal/metrics"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/pricing"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/schedule"
	"go.uber.org/zap"
)

const (
	dashboardLimit = 30
	upcomingLimit  = 5
)

// LessonOptions настройки сервиса уроков
type LessonOptions struct {
	FallbackRateCents int64
	PastDueGrace      time.Duration
	Now               func() time.Time
}

type LessonService struct {
	lessonRepo LessonStore
	userRepo   UserStore
	opts       LessonOptions
	logger     *zap.Logger
}

func NewLessonService(lessonRepo LessonStore, userRepo UserStore, opts LessonOptions, logger *zap.Logger) *LessonService {
	if opts.FallbackRateCents <= 0 {
		opts.FallbackRateCents = pricing.DefaultFallbackRateCents
	}
	if opts.PastDueGrace <= 0 {
		opts.PastDueGrace = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LessonService{
		lessonRepo: lessonRepo,
		userRepo:   userRepo,
		opts:       opts,
		logger:     logger,
	}
}

// CreateLessonInput данные новой записи. Без EndAt урок длится DurationMinutes (по умолчанию 60).
type CreateLessonInput struct {
	StudentID       int64     `json:"student_id" validate:"required,gt=0"`
	StartAt         time.Time `json:"start_at" validate:"required"`
	EndAt           time.Time `json:"end_at"`
	DurationMinutes int       `json:"duration_minutes" validate:"gte=0,lte=720"`
	HourlyRateCents int64     `json:"hourly_rate_cents" validate:"gte=0"`
	Notes           string    `json:"notes" validate:"max=2000"`
}

// Create записывает ученика на урок. Пересечения проверяются для учителя и
// ученика в одной serializable-транзакции вместе со вставкой.
func (s *LessonService) Create(ctx context.Context, id authz.Identity, in CreateLessonInput) (*model.Lesson, error) {
	if err := authz.RequireRole(id, model.RoleTeacher).Err(id, "create lesson"); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	student, err := s.userRepo.GetByID(ctx, in.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, apperr.NewValidation("student_id", "unknown student")
	}
	if err := authz.CanBookFor(id, student).Err(id, "book lesson"); err != nil {
		return nil, err
	}

	rate := pricing.DeriveRate(in.HourlyRateCents, student.HourlyRateCents, s.opts.FallbackRateCents)

	lesson, err := lifecycle.New(lifecycle.NewParams{
		TeacherID:       id.UserID,
		StudentID:       student.ID,
		StartAt:         in.StartAt,
		EndAt:           in.EndAt,
		DurationMinutes: in.DurationMinutes,
		RateCents:       rate,
		Notes:           in.Notes,
	}, s.opts.Now())
	if err != nil {
		return nil, err
	}

	err = s.lessonRepo.RunSerializable(ctx, func(tx repository.LessonTx) error {
		if err := checkConflicts(ctx, tx, lesson); err != nil {
			return err
		}
		return tx.Create(ctx, lesson)
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	metrics.LessonsCreated.Inc()
	s.logger.Info("Lesson created",
		zap.Int64("lesson_id", lesson.ID),
		zap.Int64("teacher_id", lesson.TeacherID),
		zap.Int64("student_id", lesson.StudentID),
		zap.Time("start_at", lesson.StartAt),
		zap.Int("duration_minutes", lesson.DurationMinutes),
		zap.Int64("rate_cents", lesson.HourlyRateAtBookingCents),
	)

	return lesson, nil
}

// Reschedule переносит урок на новое время
func (s *LessonService) Reschedule(ctx context.Context, id authz.Identity, lessonID int64, start, end time.Time) (*model.Lesson, error) {
	var updated *model.Lesson

	err := s.lessonRepo.RunSerializable(ctx, func(tx repository.LessonTx) error {
		lesson, err := s.loadForChange(ctx, tx, id, lessonID, "reschedule lesson")
		if err != nil {
			return err
		}

		if err := lifecycle.Reschedule(lesson, start, end, s.opts.Now()); err != nil {
			return err
		}
		if err := checkConflicts(ctx, tx, lesson); err != nil {
			return err
		}
		if err := tx.Update(ctx, lesson); err != nil {
			return err
		}

		updated = lesson
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	metrics.LessonTransitions.WithLabelValues("reschedule", lifecycle.Applied.String()).Inc()
	s.logger.Info("Lesson rescheduled",
		zap.Int64("lesson_id", updated.ID),
		zap.Time("start_at", updated.StartAt),
		zap.Time("end_at", updated.EndAt),
	)

	return updated, nil
}

// MarkDone отмечает урок проведённым
func (s *LessonService) MarkDone(ctx context.Context, id authz.Identity, lessonID int64) (*model.Lesson, lifecycle.Outcome, error) {
	return s.transition(ctx, id, lessonID, "mark_done", func(l *model.Lesson) (lifecycle.Outcome, error) {
		return lifecycle.MarkDone(l)
	})
}

// Cancel отменяет урок; повторная отмена возвращает NoOp
func (s *LessonService) Cancel(ctx context.Context, id authz.Identity, lessonID int64) (*model.Lesson, lifecycle.Outcome, error) {
	return s.transition(ctx, id, lessonID, "cancel", func(l *model.Lesson) (lifecycle.Outcome, error) {
		return lifecycle.Cancel(l), nil
	})
}

// SetPaymentMethod выставляет способ оплаты (урок считается оплаченным) или
// сбрасывает его при method == nil
func (s *LessonService) SetPaymentMethod(ctx context.Context, id authz.Identity, lessonID int64, method *model.PaymentMethod) (*model.Lesson, lifecycle.Outcome, error) {
	return s.transition(ctx, id, lessonID, "set_payment_method", func(l *model.Lesson) (lifecycle.Outcome, error) {
		return lifecycle.SetPaymentMethod(l, method), nil
	})
}

// RecordPayment добавляет частичную или полную оплату
func (s *LessonService) RecordPayment(ctx context.Context, id authz.Identity, lessonID int64, amountCents int64) (*model.Lesson, error) {
	lesson, _, err := s.transition(ctx, id, lessonID, "record_payment", func(l *model.Lesson) (lifecycle.Outcome, error) {
		if err := lifecycle.RecordPayment(l, amountCents); err != nil {
			return lifecycle.NoOp, err
		}
		return lifecycle.Applied, nil
	})
	return lesson, err
}

// Get возвращает урок, если он виден пользователю
func (s *LessonService) Get(ctx context.Context, id authz.Identity, lessonID int64) (*model.Lesson, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, fmt.Errorf("lesson %d: %w", lessonID, apperr.ErrNotFound)
	}
	if err := authz.CanViewLesson(id, lesson).Err(id, "view lesson"); err != nil {
		return nil, err
	}
	return lesson, nil
}

// Dashboard активные уроки учителя (новые первыми) и просроченные: закончились
// больше PastDueGrace назад, но не отмечены
type Dashboard struct {
	Lessons []*model.Lesson
	PastDue []*model.Lesson
}

func (s *LessonService) TeacherDashboard(ctx context.Context, id authz.Identity) (*Dashboard, error) {
	if err := authz.RequireRole(id, model.RoleTeacher).Err(id, "view dashboard"); err != nil {
		return nil, err
	}

	teacherID := id.UserID
	active := []model.LessonStatus{model.LessonStatusScheduled}

	lessons, err := s.lessonRepo.List(ctx, repository.LessonQuery{
		TeacherID: &teacherID,
		Statuses:  active,
		Order:     repository.SortDesc,
		Limit:     dashboardLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list teacher lessons: %w", err)
	}

	threshold := s.opts.Now().Add(-s.opts.PastDueGrace)
	pastDue, err := s.lessonRepo.List(ctx, repository.LessonQuery{
		TeacherID:   &teacherID,
		Statuses:    active,
		EndedBefore: &threshold,
		Order:       repository.SortAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("list past due lessons: %w", err)
	}

	return &Dashboard{Lessons: lessons, PastDue: pastDue}, nil
}

// Upcoming ближайшие активные уроки ученика или учителя
func (s *LessonService) Upcoming(ctx context.Context, id authz.Identity) ([]*model.Lesson, error) {
	if err := authz.RequireRole(id, model.RoleStudent, model.RoleTeacher).Err(id, "view upcoming lessons"); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	q := repository.LessonQuery{
		Statuses:  []model.LessonStatus{model.LessonStatusScheduled},
		StartFrom: &now,
		Order:     repository.SortAsc,
		Limit:     upcomingLimit,
	}
	s.scopeTo(id, &q)

	lessons, err := s.lessonRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list upcoming lessons: %w", err)
	}
	return lessons, nil
}

// Week все уроки пользователя за неделю, начинающуюся weekStart (включая отменённые)
func (s *LessonService) Week(ctx context.Context, id authz.Identity, weekStart time.Time) ([]*model.Lesson, error) {
	if err := authz.RequireRole(id, model.RoleStudent, model.RoleTeacher).Err(id, "view week"); err != nil {
		return nil, err
	}

	weekEnd := weekStart.AddDate(0, 0, 7)
	q := repository.LessonQuery{
		StartFrom:   &weekStart,
		StartBefore: &weekEnd,
		Order:       repository.SortAsc,
	}
	s.scopeTo(id, &q)

	lessons, err := s.lessonRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list week lessons: %w", err)
	}
	return lessons, nil
}

// PastDueAll просроченные уроки всех учителей, для фоновой задачи напоминаний
func (s *LessonService) PastDueAll(ctx context.Context) ([]*model.Lesson, error) {
	threshold := s.opts.Now().Add(-s.opts.PastDueGrace)
	lessons, err := s.lessonRepo.List(ctx, repository.LessonQuery{
		Statuses:    []model.LessonStatus{model.LessonStatusScheduled},
		EndedBefore: &threshold,
		Order:       repository.SortAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("list past due lessons: %w", err)
	}
	return lessons, nil
}

// transition общий путь для переходов без смены времени: загрузка с блокировкой,
// проверка владельца, изменение и запись только если что-то поменялось
func (s *LessonService) transition(
	ctx context.Context,
	id authz.Identity,
	lessonID int64,
	name string,
	apply func(l *model.Lesson) (lifecycle.Outcome, error),
) (*model.Lesson, lifecycle.Outcome, error) {
	var (
		result  *model.Lesson
		outcome lifecycle.Outcome
	)

	err := s.lessonRepo.RunSerializable(ctx, func(tx repository.LessonTx) error {
		lesson, err := s.loadForChange(ctx, tx, id, lessonID, name)
		if err != nil {
			return err
		}

		outcome, err = apply(lesson)
		if err != nil {
			return err
		}
		if outcome == lifecycle.Applied {
			if err := tx.Update(ctx, lesson); err != nil {
				return err
			}
		}

		result = lesson
		return nil
	})
	if err != nil {
		return nil, lifecycle.NoOp, err
	}

	metrics.LessonTransitions.WithLabelValues(name, outcome.String()).Inc()
	s.logger.Info("Lesson updated",
		zap.String("transition", name),
		zap.String("outcome", outcome.String()),
		zap.Int64("lesson_id", result.ID),
		zap.String("status", string(result.Status)),
		zap.String("paid_status", string(result.PaidStatus)),
	)

	return result, outcome, nil
}

func (s *LessonService) loadForChange(ctx context.Context, tx repository.LessonTx, id authz.Identity, lessonID int64, action string) (*model.Lesson, error) {
	lesson, err := tx.GetByIDForUpdate(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, fmt.Errorf("lesson %d: %w", lessonID, apperr.ErrNotFound)
	}
	if err := authz.CanManageLesson(id, lesson).Err(id, action); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) scopeTo(id authz.Identity, q *repository.LessonQuery) {
	userID := id.UserID
	if id.Role == model.RoleStudent {
		q.StudentID = &userID
	} else {
		q.TeacherID = &userID
	}
}

func (s *LessonService) countConflict(err error) {
	var conflict *apperr.ConflictError
	if errors.As(err, &conflict) {
		side := string(conflict.Side)
		if side == "" {
			side = "unknown"
		}
		metrics.SchedulingConflicts.WithLabelValues(side).Inc()
		s.logger.Info("Scheduling conflict", zap.String("side", side), zap.Int64("blocking_lesson_id", conflict.LessonID))
	}
}

// checkConflicts проверяет обе стороны урока по кандидатам из БД
func checkConflicts(ctx context.Context, tx repository.LessonTx, l *model.Lesson) error {
	teacherLessons, err := tx.ListOverlapping(ctx, model.PartyTeacher, l.TeacherID, l.StartAt, l.EndAt)
	if err != nil {
		return err
	}
	studentLessons, err := tx.ListOverlapping(ctx, model.PartyStudent, l.StudentID, l.StartAt, l.EndAt)
	if err != nil {
		return err
	}

	candidates := append(teacherLessons, studentLessons...)
	return schedule.CheckBoth(candidates, l.TeacherID, l.StudentID, schedule.LessonInterval(l), l.ID)
}
