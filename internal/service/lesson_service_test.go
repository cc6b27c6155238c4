package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/lifecycle"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/pricing"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func int64p(v int64) *int64 { return &v }

func testUsers() *fakeUsers {
	return newFakeUsers(
		&model.User{ID: 1, FirstName: "Anna", Role: model.RoleTeacher, Email: "anna@example.com"},
		&model.User{ID: 2, FirstName: "Boris", Role: model.RoleTeacher, HourlyRateCents: 15000},
		&model.User{ID: 10, FirstName: "Dana", Role: model.RoleStudent, TeacherID: int64p(1)},
		&model.User{ID: 11, FirstName: "Eli", Role: model.RoleStudent, TeacherID: int64p(1), HourlyRateCents: 12000},
		&model.User{ID: 20, FirstName: "Gal", Role: model.RoleStudent, TeacherID: int64p(2)},
		&model.User{ID: 99, FirstName: "Root", Role: model.RoleAdmin},
	)
}

var (
	teacherAnna  = authz.Identity{UserID: 1, Role: model.RoleTeacher}
	teacherBoris = authz.Identity{UserID: 2, Role: model.RoleTeacher}
	studentDana  = authz.Identity{UserID: 10, Role: model.RoleStudent}
	admin        = authz.Identity{UserID: 99, Role: model.RoleAdmin}
)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
}

func scheduled(id, teacherID, studentID int64, start time.Time, minutes int) *model.Lesson {
	return &model.Lesson{
		ID:                       id,
		TeacherID:                teacherID,
		StudentID:                studentID,
		StartAt:                  start,
		EndAt:                    start.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes:          minutes,
		Status:                   model.LessonStatusScheduled,
		HourlyRateAtBookingCents: 11000,
		PaidStatus:               model.PaidStatusUnpaid,
	}
}

func newLessonService(lessons *fakeLessons, users *fakeUsers) *LessonService {
	return NewLessonService(lessons, users, LessonOptions{
		FallbackRateCents: 11000,
		PastDueGrace:      30 * time.Minute,
		Now:               func() time.Time { return testNow },
	}, zap.NewNop())
}

func TestLessonService_CreateRates(t *testing.T) {
	tests := []struct {
		name     string
		id       authz.Identity
		student  int64
		explicit int64
		want     int64
	}{
		{"system fallback", teacherAnna, 10, 0, 11000},
		{"student default", teacherAnna, 11, 0, 12000},
		{"explicit wins", teacherAnna, 11, 9000, 9000},
		{"teacher profile rate is not a fallback", teacherBoris, 20, 0, 11000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newLessonService(newFakeLessons(), testUsers())

			l, err := svc.Create(context.Background(), tt.id, CreateLessonInput{
				StudentID:       tt.student,
				StartAt:         at(3, 10, 0),
				DurationMinutes: 90,
				HourlyRateCents: tt.explicit,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.HourlyRateAtBookingCents)
			assert.Equal(t, tt.want*3/2, pricing.LessonCost(l))
			assert.Equal(t, at(3, 11, 30), l.EndAt)
			assert.Equal(t, model.LessonStatusScheduled, l.Status)
			assert.NotZero(t, l.ID)
		})
	}
}

func TestLessonService_CreateDenied(t *testing.T) {
	ctx := context.Background()
	svc := newLessonService(newFakeLessons(), testUsers())
	in := CreateLessonInput{StudentID: 20, StartAt: at(3, 10, 0)}

	_, err := svc.Create(ctx, teacherAnna, in)
	assert.True(t, apperr.IsOwnership(err), "student of another teacher")

	in.StudentID = 10
	_, err = svc.Create(ctx, studentDana, in)
	assert.True(t, apperr.IsOwnership(err), "student cannot book")

	_, err = svc.Create(ctx, teacherAnna, CreateLessonInput{StudentID: 10})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "start_at", verr.Field())

	_, err = svc.Create(ctx, teacherAnna, CreateLessonInput{StudentID: 404, StartAt: at(3, 10, 0)})
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.Create(ctx, teacherAnna, CreateLessonInput{StudentID: 10, StartAt: at(1, 10, 0)})
	assert.True(t, apperr.IsValidation(err), "past start")
}

func TestLessonService_CreateConflicts(t *testing.T) {
	existing := []*model.Lesson{
		scheduled(1, 1, 11, at(3, 10, 0), 60),
		scheduled(2, 2, 20, at(3, 14, 0), 60),
	}
	cancelled := scheduled(3, 1, 10, at(3, 16, 0), 60)
	cancelled.Status = model.LessonStatusCancelled
	existing = append(existing, cancelled)

	tests := []struct {
		name     string
		id       authz.Identity
		student  int64
		start    time.Time
		minutes  int
		side     model.Party
		blocking int64
	}{
		{"teacher busy", teacherAnna, 10, at(3, 10, 30), 60, model.PartyTeacher, 1},
		{"covers whole lesson", teacherAnna, 10, at(3, 9, 0), 180, model.PartyTeacher, 1},
		{"adjacent after", teacherAnna, 10, at(3, 11, 0), 60, "", 0},
		{"adjacent before", teacherAnna, 10, at(3, 9, 0), 60, "", 0},
		{"cancelled does not block", teacherAnna, 10, at(3, 16, 0), 60, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeLessons(existing...)
			svc := newLessonService(store, testUsers())

			_, err := svc.Create(context.Background(), tt.id, CreateLessonInput{
				StudentID:       tt.student,
				StartAt:         tt.start,
				DurationMinutes: tt.minutes,
			})
			if tt.side == "" {
				require.NoError(t, err)
				return
			}

			var conflict *apperr.ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, tt.side, conflict.Side)
			assert.Equal(t, tt.blocking, conflict.LessonID)
			assert.Len(t, store.lessons, len(existing), "nothing written")
		})
	}
}

func TestLessonService_CreateStudentSideConflict(t *testing.T) {
	// Ученик 10 сейчас у Анны, но раньше занимался у Бориса
	users := testUsers()
	store := newFakeLessons(scheduled(1, 2, 10, at(3, 10, 0), 60))
	svc := newLessonService(store, users)

	_, err := svc.Create(context.Background(), teacherAnna, CreateLessonInput{StudentID: 10, StartAt: at(3, 10, 15), DurationMinutes: 30})

	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, model.PartyStudent, conflict.Side)
	assert.Equal(t, int64(1), conflict.LessonID)
}

func TestLessonService_CreateUnavailable(t *testing.T) {
	store := newFakeLessons()
	store.txErr = &apperr.UnavailableError{Op: "create lesson", Err: errStoreDown}
	svc := newLessonService(store, testUsers())

	_, err := svc.Create(context.Background(), teacherAnna, CreateLessonInput{StudentID: 10, StartAt: at(3, 10, 0)})
	assert.True(t, apperr.IsUnavailable(err))
	assert.ErrorIs(t, err, errStoreDown)
}

func TestLessonService_SerializationFailureIsNotConflict(t *testing.T) {
	ctx := context.Background()
	store := newFakeLessons(scheduled(1, 1, 10, at(1, 10, 0), 60))
	store.txErr = base.Classify("commit transaction", &pgconn.PgError{Code: "40001"})
	svc := newLessonService(store, testUsers())

	_, _, err := svc.MarkDone(ctx, teacherAnna, 1)
	assert.False(t, apperr.IsConflict(err))
	assert.True(t, apperr.IsUnavailable(err))

	_, err = svc.Create(ctx, teacherAnna, CreateLessonInput{StudentID: 10, StartAt: at(3, 10, 0)})
	assert.False(t, apperr.IsConflict(err))
	assert.True(t, apperr.IsUnavailable(err))
}

func TestLessonService_Reschedule(t *testing.T) {
	ctx := context.Background()

	t.Run("overlapping own slot is allowed", func(t *testing.T) {
		store := newFakeLessons(scheduled(1, 1, 10, at(3, 10, 0), 60))
		svc := newLessonService(store, testUsers())

		l, err := svc.Reschedule(ctx, teacherAnna, 1, at(3, 10, 30), at(3, 11, 30))
		require.NoError(t, err)
		assert.Equal(t, at(3, 10, 30), store.stored(1).StartAt)
		assert.Equal(t, 60, l.DurationMinutes)
	})

	t.Run("conflict keeps old time", func(t *testing.T) {
		store := newFakeLessons(
			scheduled(1, 1, 10, at(3, 10, 0), 60),
			scheduled(2, 1, 11, at(3, 12, 0), 60),
		)
		svc := newLessonService(store, testUsers())

		_, err := svc.Reschedule(ctx, teacherAnna, 1, at(3, 12, 30), at(3, 13, 30))
		var conflict *apperr.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, int64(2), conflict.LessonID)
		assert.Equal(t, at(3, 10, 0), store.stored(1).StartAt)
	})

	t.Run("other teacher", func(t *testing.T) {
		store := newFakeLessons(scheduled(1, 1, 10, at(3, 10, 0), 60))
		svc := newLessonService(store, testUsers())

		_, err := svc.Reschedule(ctx, teacherBoris, 1, at(4, 10, 0), at(4, 11, 0))
		assert.True(t, apperr.IsOwnership(err))
	})

	t.Run("missing lesson", func(t *testing.T) {
		svc := newLessonService(newFakeLessons(), testUsers())

		_, err := svc.Reschedule(ctx, teacherAnna, 42, at(4, 10, 0), at(4, 11, 0))
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("done lesson", func(t *testing.T) {
		done := scheduled(1, 1, 10, at(3, 10, 0), 60)
		done.Status = model.LessonStatusDone
		svc := newLessonService(newFakeLessons(done), testUsers())

		_, err := svc.Reschedule(ctx, teacherAnna, 1, at(4, 10, 0), at(4, 11, 0))
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestLessonService_Transitions(t *testing.T) {
	ctx := context.Background()
	store := newFakeLessons(scheduled(1, 1, 10, at(1, 10, 0), 90))
	svc := newLessonService(store, testUsers())

	l, outcome, err := svc.MarkDone(ctx, teacherAnna, 1)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Applied, outcome)
	assert.Equal(t, model.LessonStatusDone, l.Status)

	_, outcome, err = svc.MarkDone(ctx, teacherAnna, 1)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.NoOp, outcome)
	assert.Equal(t, 1, store.updates, "noop is not written")

	cash := model.PaymentMethodCash
	l, outcome, err = svc.SetPaymentMethod(ctx, teacherAnna, 1, &cash)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Applied, outcome)
	assert.Equal(t, model.PaidStatusPaid, l.PaidStatus)
	assert.Equal(t, int64(16500), l.PaidAmountCents)

	l, _, err = svc.SetPaymentMethod(ctx, teacherAnna, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, model.PaidStatusUnpaid, l.PaidStatus)
	assert.Nil(t, l.PaymentMethod)
	assert.Zero(t, l.PaidAmountCents)

	l, err = svc.RecordPayment(ctx, teacherAnna, 1, 5000)
	require.NoError(t, err)
	assert.Equal(t, model.PaidStatusPartial, l.PaidStatus)

	l, err = svc.RecordPayment(ctx, teacherAnna, 1, 11500)
	require.NoError(t, err)
	assert.Equal(t, model.PaidStatusPaid, l.PaidStatus)
	assert.Equal(t, model.PaidStatusPaid, store.stored(1).PaidStatus)

	_, err = svc.RecordPayment(ctx, teacherAnna, 1, 0)
	assert.True(t, apperr.IsValidation(err))
}

func TestLessonService_Cancel(t *testing.T) {
	ctx := context.Background()
	store := newFakeLessons(scheduled(1, 1, 10, at(3, 10, 0), 60))
	svc := newLessonService(store, testUsers())

	_, outcome, err := svc.Cancel(ctx, teacherAnna, 1)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Applied, outcome)

	_, outcome, err = svc.Cancel(ctx, teacherAnna, 1)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.NoOp, outcome)

	_, _, err = svc.MarkDone(ctx, teacherAnna, 1)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, model.LessonStatusCancelled, store.stored(1).Status)

	// Освободившееся время можно занять
	_, err = svc.Create(ctx, teacherAnna, CreateLessonInput{StudentID: 10, StartAt: at(3, 10, 0)})
	require.NoError(t, err)
}

func TestLessonService_StudentCannotMutate(t *testing.T) {
	ctx := context.Background()
	store := newFakeLessons(scheduled(1, 1, 10, at(3, 10, 0), 60))
	svc := newLessonService(store, testUsers())
	cash := model.PaymentMethodCash

	_, _, err := svc.MarkDone(ctx, studentDana, 1)
	assert.True(t, apperr.IsOwnership(err))
	_, _, err = svc.Cancel(ctx, studentDana, 1)
	assert.True(t, apperr.IsOwnership(err))
	_, _, err = svc.SetPaymentMethod(ctx, studentDana, 1, &cash)
	assert.True(t, apperr.IsOwnership(err))
	_, err = svc.RecordPayment(ctx, studentDana, 1, 100)
	assert.True(t, apperr.IsOwnership(err))
	_, err = svc.Reschedule(ctx, studentDana, 1, at(4, 10, 0), at(4, 11, 0))
	assert.True(t, apperr.IsOwnership(err))

	assert.Zero(t, store.updates)

	l, err := svc.Get(ctx, studentDana, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.ID)

	_, err = svc.Get(ctx, teacherBoris, 1)
	assert.True(t, apperr.IsOwnership(err))
	_, err = svc.Get(ctx, admin, 1)
	assert.NoError(t, err)
}

func TestLessonService_Dashboard(t *testing.T) {
	ctx := context.Background()
	unset := scheduled(4, 1, 10, at(2, 9, 0), 60)
	unset.Status = model.LessonStatusUnset
	recent := scheduled(5, 1, 10, at(2, 11, 0), 45)
	done := scheduled(6, 1, 11, at(1, 9, 0), 60)
	done.Status = model.LessonStatusDone

	store := newFakeLessons(
		scheduled(1, 1, 10, at(3, 10, 0), 60),
		scheduled(2, 1, 11, at(4, 10, 0), 60),
		scheduled(3, 2, 20, at(3, 10, 0), 60),
		unset, recent, done,
	)
	svc := newLessonService(store, testUsers())

	d, err := svc.TeacherDashboard(ctx, teacherAnna)
	require.NoError(t, err)

	var ids []int64
	for _, l := range d.Lessons {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []int64{2, 1, 5, 4}, ids, "active, newest first")

	require.Len(t, d.PastDue, 1, "11:45 ended less than 30 minutes ago")
	assert.Equal(t, int64(4), d.PastDue[0].ID)

	_, err = svc.TeacherDashboard(ctx, studentDana)
	assert.True(t, apperr.IsOwnership(err))
}

func TestLessonService_Upcoming(t *testing.T) {
	var lessons []*model.Lesson
	for i := 1; i <= 7; i++ {
		lessons = append(lessons, scheduled(int64(i), 1, 10, at(2+i, 10, 0), 60))
	}
	past := scheduled(8, 1, 10, at(1, 10, 0), 60)
	lessons = append(lessons, past)

	svc := newLessonService(newFakeLessons(lessons...), testUsers())

	got, err := svc.Upcoming(context.Background(), studentDana)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(5), got[4].ID)
}

func TestLessonService_WeekIncludesCancelled(t *testing.T) {
	cancelled := scheduled(2, 1, 10, at(4, 10, 0), 60)
	cancelled.Status = model.LessonStatusCancelled
	store := newFakeLessons(
		scheduled(1, 1, 10, at(3, 10, 0), 60),
		cancelled,
		scheduled(3, 1, 10, at(10, 10, 0), 60),
	)
	svc := newLessonService(store, testUsers())

	got, err := svc.Week(context.Background(), teacherAnna, at(2, 0, 0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.LessonStatusCancelled, got[1].Status)
}

func TestLessonService_PastDueAll(t *testing.T) {
	store := newFakeLessons(
		scheduled(1, 1, 10, at(1, 10, 0), 60),
		scheduled(2, 2, 20, at(2, 9, 0), 60),
		scheduled(3, 1, 11, at(3, 9, 0), 60),
	)
	svc := newLessonService(store, testUsers())

	got, err := svc.PastDueAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
}
