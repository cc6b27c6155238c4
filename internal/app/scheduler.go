package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/metrics"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/notify"
	"github.com/Freeeeeet/tutor_scheduler/internal/observability"
	"go.uber.org/zap"
)

// Job фоновая задача
type Job func(ctx context.Context) error

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Every запускает задачу сразу и затем каждые interval до Stop или отмены ctx
func (s *Scheduler) Every(ctx context.Context, interval time.Duration, name string, job Job) {
	s.logger.Info("Starting background job", zap.String("job", name), zap.Duration("interval", interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.run(ctx, name, job)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.run(ctx, name, job)
			case <-s.stopChan:
				s.logger.Info("Background job stopped", zap.String("job", name))
				return
			case <-ctx.Done():
				s.logger.Info("Background job cancelled", zap.String("job", name))
				return
			}
		}
	}()
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, name string, job Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in job %s: %v", name, r)
			metrics.JobErrors.WithLabelValues(name).Inc()
			observability.CaptureErr(err)
			s.logger.Error("Background job panicked", zap.String("job", name), zap.Error(err))
		}
		metrics.JobRuns.WithLabelValues(name).Inc()
		metrics.JobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	if err := job(ctx); err != nil {
		metrics.JobErrors.WithLabelValues(name).Inc()
		observability.CaptureErr(err)
		s.logger.Error("Background job failed", zap.String("job", name), zap.Error(err))
	}
}

// PastDueSource просроченные уроки всех учителей
type PastDueSource interface {
	PastDueAll(ctx context.Context) ([]*model.Lesson, error)
}

// UserLookup пользователи по ID
type UserLookup interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
}

// PastDueReminders одно сообщение в Telegram каждому учителю со списком
// уроков, которые уже прошли, но не отмечены
func PastDueReminders(lessons PastDueSource, users UserLookup, notifier notify.Notifier, loc *time.Location, logger *zap.Logger) Job {
	if loc == nil {
		loc = time.UTC
	}

	return func(ctx context.Context) error {
		pastDue, err := lessons.PastDueAll(ctx)
		if err != nil {
			return fmt.Errorf("list past due lessons: %w", err)
		}
		if len(pastDue) == 0 {
			return nil
		}

		byTeacher := make(map[int64][]*model.Lesson)
		ids := make([]int64, 0)
		for _, l := range pastDue {
			if _, ok := byTeacher[l.TeacherID]; !ok {
				ids = append(ids, l.TeacherID)
			}
			byTeacher[l.TeacherID] = append(byTeacher[l.TeacherID], l)
			ids = append(ids, l.StudentID)
		}

		people, err := users.GetByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("get users: %w", err)
		}
		byID := make(map[int64]*model.User, len(people))
		for _, u := range people {
			byID[u.ID] = u
		}

		teacherIDs := make([]int64, 0, len(byTeacher))
		for id := range byTeacher {
			teacherIDs = append(teacherIDs, id)
		}
		sort.Slice(teacherIDs, func(i, j int) bool { return teacherIDs[i] < teacherIDs[j] })

		var failed int
		for _, teacherID := range teacherIDs {
			teacher := byID[teacherID]
			if teacher == nil || teacher.TelegramID == nil {
				continue
			}

			err := notifier.Send(ctx, notify.Message{
				Subject: "Неотмеченные уроки",
				Body:    pastDueText(byTeacher[teacherID], byID, loc),
				To:      strconv.FormatInt(*teacher.TelegramID, 10),
			})
			if err != nil {
				failed++
				logger.Warn("Failed to send past due reminder",
					zap.Int64("teacher_id", teacherID),
					zap.Error(err),
				)
			}
		}

		logger.Info("Past due reminders processed",
			zap.Int("lessons", len(pastDue)),
			zap.Int("teachers", len(teacherIDs)),
			zap.Int("failed", failed),
		)

		if failed > 0 {
			return fmt.Errorf("%d past due reminders not delivered", failed)
		}
		return nil
	}
}

func pastDueText(lessons []*model.Lesson, users map[int64]*model.User, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("⏰ Эти уроки уже прошли, но не отмечены:\n")
	for _, l := range lessons {
		name := "#" + strconv.FormatInt(l.StudentID, 10)
		if u := users[l.StudentID]; u != nil {
			name = u.DisplayName()
		}
		fmt.Fprintf(&b, "\n#%d %s, %s", l.ID, l.StartAt.In(loc).Format("02.01 15:04"), name)
	}
	b.WriteString("\n\nОтметьте: /done <id> или /cancel <id>")
	return b.String()
}
