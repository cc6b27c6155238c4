package base

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// Коды ошибок PostgreSQL, которые обрабатываются отдельно
const (
	codeExclusionViolation   = "23P01"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Querier общий интерфейс пула и транзакции
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// Repository базовый репозиторий с общими методами
type Repository struct {
	pool *pgxpool.Pool
	db   Querier
}

// NewRepository создаёт новый базовый репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// WithTx возвращает копию репозитория, работающую внутри транзакции
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{pool: r.pool, db: tx}
}

// Pool возвращает пул соединений
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// DB возвращает текущий исполнитель запросов (пул или транзакция)
func (r *Repository) DB() Querier {
	return r.db
}

// QueryRow выполняет запрос и возвращает одну строку
func (r *Repository) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return r.db.QueryRow(ctx, query, args...)
}

// Query выполняет запрос и возвращает множество строк
func (r *Repository) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return r.db.Query(ctx, query, args...)
}

// ExecAffected выполняет команду и возвращает количество затронутых строк
func (r *Repository) ExecAffected(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RunInTx выполняет fn в транзакции; при ошибке fn транзакция откатывается
func RunInTx(ctx context.Context, pool *pgxpool.Pool, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return Classify("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return Classify("commit transaction", err)
	}
	return nil
}

// Повторы serializable-транзакций при сбое сериализации или дедлоке
const (
	SerializableAttempts   = 5
	SerializableRetryDelay = 20 * time.Millisecond
)

// RetrySerializable выполняет fn до attempts раз, пока она падает со сбоем
// сериализации или дедлоком. Остальные ошибки возвращаются сразу.
// Если попытки закончились, возвращается последняя ошибка (UnavailableError).
func RetrySerializable(ctx context.Context, attempts uint64, delay time.Duration, fn func(ctx context.Context) error) error {
	if attempts == 0 {
		attempts = 1
	}

	backoff := retry.NewExponential(delay)
	backoff = retry.WithJitterPercent(25, backoff)
	backoff = retry.WithMaxRetries(attempts-1, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if IsSerializationFailure(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if IsSerializationFailure(err) && !apperr.IsUnavailable(err) {
		return &apperr.UnavailableError{Op: "serializable transaction", Err: err}
	}
	return err
}

// IsSerializationFailure сбой сериализации (40001) или дедлок (40P01):
// транзакцию можно безопасно повторить
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// IsNotFound проверяет является ли ошибка "строка не найдена"
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Classify переводит ошибки драйвера в типы apperr:
// нарушение exclusion-ограничения -> ConflictError; сбой сериализации,
// дедлок, обрыв соединения и таймауты -> UnavailableError.
// Остальные оборачиваются как есть.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeExclusionViolation:
			return &apperr.ConflictError{Side: sideOfConstraint(pgErr.ConstraintName)}
		case codeSerializationFailure, codeDeadlockDetected:
			return &apperr.UnavailableError{Op: op, Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &apperr.UnavailableError{Op: op, Err: err}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func sideOfConstraint(name string) model.Party {
	switch name {
	case "lessons_student_no_overlap":
		return model.PartyStudent
	case "lessons_teacher_no_overlap":
		return model.PartyTeacher
	}
	return ""
}
