package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const lessonColumns = `id, teacher_id, student_id, start_at, end_at, duration_minutes, status,
		hourly_rate_at_booking_cents, paid_status, paid_amount_cents, payment_method, notes,
		created_at, updated_at`

type LessonRepository struct {
	*base.Repository
}

// LessonTx операции над уроками внутри транзакции
type LessonTx interface {
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Lesson, error)
	ListOverlapping(ctx context.Context, party model.Party, partyID int64, start, end time.Time) ([]*model.Lesson, error)
	Create(ctx context.Context, l *model.Lesson) error
	Update(ctx context.Context, l *model.Lesson) error
}

var _ LessonTx = (*LessonRepository)(nil)

func NewLessonRepository(pool *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{Repository: base.NewRepository(pool)}
}

// WithTx возвращает репозиторий, привязанный к транзакции
func (r *LessonRepository) WithTx(tx pgx.Tx) *LessonRepository {
	return &LessonRepository{Repository: r.Repository.WithTx(tx)}
}

// RunSerializable выполняет fn в serializable-транзакции. Проверка пересечений
// и запись внутри fn атомарны; exclusion-ограничения в БД страхуют от гонок.
// При сбое сериализации транзакция целиком повторяется, fn должна быть идемпотентной.
func (r *LessonRepository) RunSerializable(ctx context.Context, fn func(tx LessonTx) error) error {
	return base.RetrySerializable(ctx, base.SerializableAttempts, base.SerializableRetryDelay, func(ctx context.Context) error {
		return base.RunInTx(ctx, r.Pool(), pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			return fn(r.WithTx(tx))
		})
	})
}

// Create создаёт урок
func (r *LessonRepository) Create(ctx context.Context, l *model.Lesson) error {
	query := `
		INSERT INTO lessons (teacher_id, student_id, start_at, end_at, duration_minutes, status,
			hourly_rate_at_booking_cents, paid_status, paid_amount_cents, payment_method, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		l.TeacherID,
		l.StudentID,
		l.StartAt,
		l.EndAt,
		l.DurationMinutes,
		nullableStatus(l.Status),
		l.HourlyRateAtBookingCents,
		l.PaidStatus,
		l.PaidAmountCents,
		nullableMethod(l.PaymentMethod),
		l.Notes,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)

	if err != nil {
		return base.Classify("create lesson", err)
	}

	return nil
}

// GetByID получает урок по ID
func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	l, err := scanLesson(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, base.Classify("get lesson by id", err)
	}

	return l, nil
}

// GetByIDForUpdate блокирует строку урока до конца транзакции
func (r *LessonRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1 FOR UPDATE`

	l, err := scanLesson(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, base.Classify("get lesson for update", err)
	}

	return l, nil
}

// ListOverlapping возвращает неотменённые уроки участника, пересекающиеся с [start, end)
func (r *LessonRepository) ListOverlapping(ctx context.Context, party model.Party, partyID int64, start, end time.Time) ([]*model.Lesson, error) {
	column := "teacher_id"
	if party == model.PartyStudent {
		column = "student_id"
	}

	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE ` + column + ` = $1
		  AND status IS DISTINCT FROM 'cancelled'
		  AND end_at > $2
		  AND start_at < $3
		ORDER BY start_at ASC, id ASC
	`

	return r.queryLessons(ctx, "list overlapping lessons", query, partyID, start, end)
}

// Update сохраняет изменяемые поля урока. teacher_id и student_id не меняются никогда.
func (r *LessonRepository) Update(ctx context.Context, l *model.Lesson) error {
	query := `
		UPDATE lessons
		SET start_at = $1, end_at = $2, duration_minutes = $3, status = $4,
			hourly_rate_at_booking_cents = $5, paid_status = $6, paid_amount_cents = $7,
			payment_method = $8, notes = $9, updated_at = now()
		WHERE id = $10 AND teacher_id = $11
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx, query,
		l.StartAt,
		l.EndAt,
		l.DurationMinutes,
		nullableStatus(l.Status),
		l.HourlyRateAtBookingCents,
		l.PaidStatus,
		l.PaidAmountCents,
		nullableMethod(l.PaymentMethod),
		l.Notes,
		l.ID,
		l.TeacherID,
	).Scan(&l.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("lesson %d: %w", l.ID, apperr.ErrNotFound)
		}
		return base.Classify("update lesson", err)
	}

	return nil
}

// SortOrder порядок сортировки по началу урока
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// LessonQuery условия выборки уроков; пустые поля не ограничивают выборку
type LessonQuery struct {
	TeacherID   *int64
	StudentID   *int64
	Statuses    []model.LessonStatus // scheduled включает уроки без статуса
	StartFrom   *time.Time           // start_at >= StartFrom
	StartBefore *time.Time           // start_at < StartBefore
	EndedBefore *time.Time           // end_at < EndedBefore
	Order       SortOrder
	Limit       int
}

// List выбирает уроки по условиям
func (r *LessonRepository) List(ctx context.Context, q LessonQuery) ([]*model.Lesson, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.TeacherID != nil {
		add("teacher_id = $%d", *q.TeacherID)
	}
	if q.StudentID != nil {
		add("student_id = $%d", *q.StudentID)
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, 0, len(q.Statuses))
		for _, s := range q.Statuses {
			statuses = append(statuses, string(s.Normalize()))
		}
		add("COALESCE(status, 'scheduled') = ANY($%d)", statuses)
	}
	if q.StartFrom != nil {
		add("start_at >= $%d", *q.StartFrom)
	}
	if q.StartBefore != nil {
		add("start_at < $%d", *q.StartBefore)
	}
	if q.EndedBefore != nil {
		add("end_at < $%d", *q.EndedBefore)
	}

	order := SortAsc
	if q.Order == SortDesc {
		order = SortDesc
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + lessonColumns + ` FROM lessons`)
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY start_at %s, id %s", order, order))
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	return r.queryLessons(ctx, "list lessons", sb.String(), args...)
}

func (r *LessonRepository) queryLessons(ctx context.Context, op, query string, args ...any) ([]*model.Lesson, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, base.Classify(op, err)
	}
	defer rows.Close()

	var lessons []*model.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}

	if err := rows.Err(); err != nil {
		return nil, base.Classify(op, err)
	}

	return lessons, nil
}

func scanLesson(row pgx.Row) (*model.Lesson, error) {
	var (
		l       model.Lesson
		status  *string
		method  *string
		paidStr string
	)

	err := row.Scan(
		&l.ID,
		&l.TeacherID,
		&l.StudentID,
		&l.StartAt,
		&l.EndAt,
		&l.DurationMinutes,
		&status,
		&l.HourlyRateAtBookingCents,
		&paidStr,
		&l.PaidAmountCents,
		&method,
		&l.Notes,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if status != nil {
		l.Status = model.LessonStatus(*status)
	}
	l.PaidStatus = model.PaidStatus(paidStr)
	if method != nil {
		pm := model.PaymentMethod(*method)
		l.PaymentMethod = &pm
	}

	return &l, nil
}

func nullableStatus(s model.LessonStatus) *string {
	if s == model.LessonStatusUnset {
		return nil
	}
	v := string(s)
	return &v
}

func nullableMethod(m *model.PaymentMethod) *string {
	if m == nil {
		return nil
	}
	v := string(*m)
	return &v
}
