package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/export"
	"github.com/Freeeeeet/tutor_scheduler/internal/metrics"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/report"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"go.uber.org/zap"
)

// ReportOptions параметры отображения отчётов
type ReportOptions struct {
	Location *time.Location
	Currency string
	Now      func() time.Time
}

type ReportService struct {
	lessonRepo LessonStore
	userRepo   UserStore
	exporter   ReportExporter
	opts       ReportOptions
	logger     *zap.Logger
}

func NewReportService(lessonRepo LessonStore, userRepo UserStore, exporter ReportExporter, opts ReportOptions, logger *zap.Logger) *ReportService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ReportService{
		lessonRepo: lessonRepo,
		userRepo:   userRepo,
		exporter:   exporter,
		opts:       opts,
		logger:     logger,
	}
}

// ExportResult готовый файл выгрузки
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	Summary     report.Summary
}

// CompletedSummary сводка по проведённым урокам учителя. Некорректные значения
// фильтра не ломают отчёт, а возвращаются в Summary.Warnings.
func (s *ReportService) CompletedSummary(ctx context.Context, id authz.Identity, raw report.RawFilter) (report.Summary, map[int64]string, error) {
	if err := authz.RequireRole(id, model.RoleTeacher).Err(id, "view report"); err != nil {
		return report.Summary{}, nil, err
	}

	filter, warnings := report.ParseFilter(raw, s.opts.Location)
	if len(warnings) > 0 {
		s.logger.Debug("Report filter warnings",
			zap.Int64("teacher_id", id.UserID),
			zap.Int("count", len(warnings)),
		)
	}

	teacherID := id.UserID
	q := repository.LessonQuery{
		TeacherID:   &teacherID,
		StudentID:   filter.StudentID,
		Statuses:    []model.LessonStatus{model.LessonStatusDone},
		StartFrom:   filter.From,
		StartBefore: filter.To,
		Order:       repository.SortDesc,
	}
	lessons, err := s.lessonRepo.List(ctx, q)
	if err != nil {
		return report.Summary{}, nil, fmt.Errorf("list completed lessons: %w", err)
	}

	names, err := s.namesOf(ctx, lessons, model.PartyStudent)
	if err != nil {
		return report.Summary{}, nil, err
	}

	summary := report.Aggregate(lessons, filter, names, s.opts.Location)
	summary.Warnings = warnings

	return summary, names, nil
}

// Export выгружает сводку в документ
func (s *ReportService) Export(ctx context.Context, id authz.Identity, raw report.RawFilter) (*ExportResult, error) {
	summary, names, err := s.CompletedSummary(ctx, id, raw)
	if err != nil {
		return nil, err
	}

	teacher, err := s.userRepo.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	teacherName := ""
	if teacher != nil {
		teacherName = teacher.DisplayName()
	}

	doc := export.LessonsReport{
		TeacherName:  teacherName,
		Summary:      summary,
		StudentNames: names,
		Currency:     s.opts.Currency,
		Location:     s.opts.Location,
		GeneratedAt:  s.opts.Now().In(s.opts.Location),
	}

	data, err := s.exporter.Export(doc)
	if err != nil {
		return nil, fmt.Errorf("export report: %w", err)
	}

	metrics.ReportExports.WithLabelValues(s.exporter.Extension()).Inc()
	s.logger.Info("Report exported",
		zap.Int64("teacher_id", id.UserID),
		zap.Int("lessons", summary.Totals.Count),
		zap.Int("bytes", len(data)),
	)

	return &ExportResult{
		Filename:    s.exporter.Filename(doc),
		ContentType: s.exporter.ContentType(),
		Data:        data,
		Summary:     summary,
	}, nil
}

// WeekImage картинка расписания недели, в которую попадает day
func (s *ReportService) WeekImage(ctx context.Context, id authz.Identity, day time.Time) ([]byte, error) {
	if err := authz.RequireRole(id, model.RoleStudent, model.RoleTeacher).Err(id, "view week"); err != nil {
		return nil, err
	}

	weekStart := export.WeekStart(day.In(s.opts.Location))
	weekEnd := weekStart.AddDate(0, 0, 7)

	userID := id.UserID
	q := repository.LessonQuery{
		StartFrom:   &weekStart,
		StartBefore: &weekEnd,
		Order:       repository.SortAsc,
	}
	nameOf := model.PartyStudent
	if id.Role == model.RoleStudent {
		q.StudentID = &userID
		nameOf = model.PartyTeacher
	} else {
		q.TeacherID = &userID
	}

	lessons, err := s.lessonRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list week lessons: %w", err)
	}

	names, err := s.namesOf(ctx, lessons, nameOf)
	if err != nil {
		return nil, err
	}

	img, err := export.RenderWeek(export.WeekView{
		Day:      weekStart,
		Lessons:  lessons,
		Names:    names,
		NameOf:   nameOf,
		Now:      s.opts.Now(),
		Location: s.opts.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("render week: %w", err)
	}
	return img, nil
}

// namesOf имена второй стороны уроков
func (s *ReportService) namesOf(ctx context.Context, lessons []*model.Lesson, party model.Party) (map[int64]string, error) {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, l := range lessons {
		pid := l.PartyID(party)
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		ids = append(ids, pid)
	}

	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names, nil
}
