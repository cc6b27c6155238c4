//go:build testutil

package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/Freeeeeet/tutor_scheduler/internal/testutil/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var db *testdb.DBHandle

func TestMain(m *testing.M) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "testdb:", err)
		os.Exit(1)
	}
	db = h
	code := m.Run()
	h.Close()
	os.Exit(code)
}

type fixture struct {
	users   *repository.UserRepository
	lessons *repository.LessonRepository
	teacher *model.User
	student *model.User
	other   *model.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.Reset(ctx))

	f := fixture{
		users:   repository.NewUserRepository(db.Pool),
		lessons: repository.NewLessonRepository(db.Pool),
	}

	f.teacher = &model.User{FirstName: "Анна", Role: model.RoleTeacher, Email: "anna@example.com", HourlyRateCents: 15000}
	require.NoError(t, f.users.Create(ctx, f.teacher))

	f.student = &model.User{FirstName: "Дана", Role: model.RoleStudent, TeacherID: &f.teacher.ID}
	require.NoError(t, f.users.Create(ctx, f.student))

	f.other = &model.User{FirstName: "Эли", Role: model.RoleStudent, TeacherID: &f.teacher.ID}
	require.NoError(t, f.users.Create(ctx, f.other))

	return f
}

func lessonAt(teacher, student *model.User, start time.Time, minutes int) *model.Lesson {
	return &model.Lesson{
		TeacherID:                teacher.ID,
		StudentID:                student.ID,
		StartAt:                  start,
		EndAt:                    start.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes:          minutes,
		Status:                   model.LessonStatusScheduled,
		HourlyRateAtBookingCents: 15000,
		PaidStatus:               model.PaidStatusUnpaid,
	}
}

func TestExclusionConstraintRejectsTeacherOverlap(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)

	require.NoError(t, f.lessons.Create(ctx, lessonAt(f.teacher, f.student, start, 60)))

	err := f.lessons.Create(ctx, lessonAt(f.teacher, f.other, start.Add(30*time.Minute), 60))

	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, model.PartyTeacher, conflict.Side)
}

func TestExclusionConstraintAllowsTouchingAndCancelled(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)

	first := lessonAt(f.teacher, f.student, start, 60)
	require.NoError(t, f.lessons.Create(ctx, first))

	// конец одного урока совпадает с началом другого
	require.NoError(t, f.lessons.Create(ctx, lessonAt(f.teacher, f.other, start.Add(time.Hour), 60)))

	first.Status = model.LessonStatusCancelled
	require.NoError(t, f.lessons.Update(ctx, first))
	require.NoError(t, f.lessons.Create(ctx, lessonAt(f.teacher, f.other, start, 60)))
}

func TestNullStatusBlocksSchedule(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)

	legacy := lessonAt(f.teacher, f.student, start, 60)
	legacy.Status = model.LessonStatusUnset
	require.NoError(t, f.lessons.Create(ctx, legacy))

	got, err := f.lessons.GetByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LessonStatusUnset, got.Status)

	overlapping, err := f.lessons.ListOverlapping(ctx, model.PartyStudent, f.student.ID, start.Add(15*time.Minute), start.Add(45*time.Minute))
	require.NoError(t, err)
	require.Len(t, overlapping, 1)

	err = f.lessons.Create(ctx, lessonAt(f.teacher, f.student, start.Add(15*time.Minute), 30))
	assert.True(t, apperr.IsConflict(err), "got %v", err)
}

func TestConcurrentCreateBooksOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	svc := service.NewLessonService(f.lessons, f.users, service.LessonOptions{}, zap.NewNop())
	id := authz.IdentityOf(f.teacher)
	start := time.Now().UTC().Add(96 * time.Hour).Truncate(time.Hour)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
		other     []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			student := f.student
			if i%2 == 1 {
				student = f.other
			}
			_, err := svc.Create(ctx, id, service.CreateLessonInput{
				StudentID:       student.ID,
				StartAt:         start.Add(time.Duration(i) * time.Minute),
				DurationMinutes: 60,
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperr.IsConflict(err):
				conflicts++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)

	active, err := f.lessons.List(ctx, repository.LessonQuery{TeacherID: &f.teacher.ID})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestConcurrentCreateDisjointSlots(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	svc := service.NewLessonService(f.lessons, f.users, service.LessonOptions{}, zap.NewNop())
	id := authz.IdentityOf(f.teacher)
	start := time.Now().UTC().Add(120 * time.Hour).Truncate(time.Hour)

	const attempts = 6
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			student := f.student
			if i%2 == 1 {
				student = f.other
			}
			_, errs[i] = svc.Create(ctx, id, service.CreateLessonInput{
				StudentID:       student.ID,
				StartAt:         start.Add(time.Duration(i) * 2 * time.Hour),
				DurationMinutes: 60,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "slot %d", i)
	}

	active, err := f.lessons.List(ctx, repository.LessonQuery{TeacherID: &f.teacher.ID})
	require.NoError(t, err)
	assert.Len(t, active, attempts)
}

func TestLessonListFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.lessons.Create(ctx, lessonAt(f.teacher, f.student, base.Add(time.Duration(i)*24*time.Hour), 60)))
	}
	done := lessonAt(f.teacher, f.other, base.Add(2*time.Hour), 60)
	done.Status = model.LessonStatusDone
	require.NoError(t, f.lessons.Create(ctx, done))

	got, err := f.lessons.List(ctx, repository.LessonQuery{
		TeacherID: &f.teacher.ID,
		Statuses:  []model.LessonStatus{model.LessonStatusScheduled},
		Order:     repository.SortDesc,
		Limit:     2,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].StartAt.After(got[1].StartAt))

	till := base.Add(3 * time.Hour)
	got, err = f.lessons.List(ctx, repository.LessonQuery{StudentID: &f.other.ID, StartBefore: &till})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.LessonStatusDone, got[0].Status)
}

func TestUserRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tgID := int64(555)
	u := &model.User{TelegramID: &tgID, Username: "dana", Role: model.RoleStudent}
	require.NoError(t, f.users.Create(ctx, u))

	got, err := f.users.GetByTelegramID(ctx, tgID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	missing, err := f.users.GetByTelegramID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, f.users.SetTeacher(ctx, u.ID, &f.teacher.ID))
	students, err := f.users.ListStudentsOfTeacher(ctx, f.teacher.ID)
	require.NoError(t, err)
	assert.Len(t, students, 3)

	first, err := f.users.FirstTeacher(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.teacher.ID, first.ID)

	err = f.users.SetRole(ctx, 12345, model.RoleAdmin)
	assert.True(t, apperr.IsNotFound(err))
}

func TestMaterialRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	materials := repository.NewMaterialRepository(db.Pool)

	older := &model.Material{TeacherID: f.teacher.ID, StudentID: f.student.ID, Title: "Дроби", LinkURL: "https://example.com"}
	require.NoError(t, materials.Create(ctx, older))
	newer := &model.Material{TeacherID: f.teacher.ID, StudentID: f.student.ID, Title: "Уравнения", StoredName: "abc_eq.pdf", FileName: "eq.pdf"}
	require.NoError(t, materials.Create(ctx, newer))

	list, err := materials.ListForStudent(ctx, f.student.ID, &f.teacher.ID, 50)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.True(t, list[0].HasFile())

	require.NoError(t, materials.Delete(ctx, older.ID))
	assert.True(t, apperr.IsNotFound(materials.Delete(ctx, older.ID)))

	leads := repository.NewLeadRepository(db.Pool)
	lead := &model.Lead{Name: "Мама Даны", Phone: "+972500000000"}
	require.NoError(t, leads.Create(ctx, lead))
	assert.NotZero(t, lead.ID)
}
