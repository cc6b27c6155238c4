package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, telegram_id, username, email, first_name, last_name, role, teacher_id,
		hourly_rate_cents, grade, school, created_at`

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (telegram_id, username, email, first_name, last_name, role, teacher_id, hourly_rate_cents, grade, school)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		user.TelegramID,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.TeacherID,
		user.HourlyRateCents,
		user.Grade,
		user.School,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return base.Classify("create user", err)
	}

	return nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.QueryRow(ctx, query, telegramID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Пользователь не найден
		}
		return nil, base.Classify("get user by telegram id", err)
	}

	return user, nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, base.Classify("get user by id", err)
	}

	return user, nil
}

// GetByIDs получает пользователей по списку ID
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ANY($1)
		ORDER BY first_name, last_name
	`

	return r.queryUsers(ctx, "get users by ids", query, ids)
}

// Update обновляет профиль пользователя (без роли и закрепления за учителем)
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, first_name = $3, last_name = $4, grade = $5, school = $6
		WHERE id = $7
	`

	affected, err := r.ExecAffected(
		ctx, query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Grade,
		user.School,
		user.ID,
	)

	if err != nil {
		return base.Classify("update user", err)
	}

	if affected == 0 {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}

	return nil
}

// ListStudentsOfTeacher ученики, закреплённые за учителем
func (r *UserRepository) ListStudentsOfTeacher(ctx context.Context, teacherID int64) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE teacher_id = $1 AND role = 'student'
		ORDER BY username, id
	`

	return r.queryUsers(ctx, "list students of teacher", query, teacherID)
}

// FirstTeacher самый давний учитель в системе
func (r *UserRepository) FirstTeacher(ctx context.Context) (*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = 'teacher'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	user, err := scanUser(r.QueryRow(ctx, query))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, base.Classify("get first teacher", err)
	}

	return user, nil
}

// SetTeacher закрепляет ученика за учителем (заменяет предыдущее закрепление)
func (r *UserRepository) SetTeacher(ctx context.Context, studentID int64, teacherID *int64) error {
	query := `
		UPDATE users
		SET teacher_id = $1
		WHERE id = $2 AND role = 'student'
	`

	affected, err := r.ExecAffected(ctx, query, teacherID, studentID)
	if err != nil {
		return base.Classify("set student teacher", err)
	}

	if affected == 0 {
		return fmt.Errorf("student: %w", apperr.ErrNotFound)
	}

	return nil
}

// SetRate обновляет почасовую ставку пользователя
func (r *UserRepository) SetRate(ctx context.Context, userID int64, rateCents int64) error {
	affected, err := r.ExecAffected(ctx, `UPDATE users SET hourly_rate_cents = $1 WHERE id = $2`, rateCents, userID)
	if err != nil {
		return base.Classify("set user rate", err)
	}

	if affected == 0 {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}

	return nil
}

// SetRole меняет роль пользователя
func (r *UserRepository) SetRole(ctx context.Context, userID int64, role model.Role) error {
	affected, err := r.ExecAffected(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, userID)
	if err != nil {
		return base.Classify("set user role", err)
	}

	if affected == 0 {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}

	return nil
}

func (r *UserRepository) queryUsers(ctx context.Context, op, query string, args ...any) ([]*model.User, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, base.Classify(op, err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, base.Classify(op, err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		user model.User
		role string
	)

	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&role,
		&user.TeacherID,
		&user.HourlyRateCents,
		&user.Grade,
		&user.School,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = model.Role(role)
	return &user, nil
}
