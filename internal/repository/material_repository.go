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

const materialColumns = `id, teacher_id, student_id, title, description, link_url, stored_name, file_name, created_at`

type MaterialRepository struct {
	*base.Repository
}

func NewMaterialRepository(pool *pgxpool.Pool) *MaterialRepository {
	return &MaterialRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет запись о материале
func (r *MaterialRepository) Create(ctx context.Context, m *model.Material) error {
	query := `
		INSERT INTO student_materials (teacher_id, student_id, title, description, link_url, stored_name, file_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.QueryRow(
		ctx, query,
		m.TeacherID,
		m.StudentID,
		m.Title,
		m.Description,
		m.LinkURL,
		m.StoredName,
		m.FileName,
	).Scan(&m.ID, &m.CreatedAt)

	if err != nil {
		return base.Classify("create material", err)
	}

	return nil
}

// GetByID получает материал по ID
func (r *MaterialRepository) GetByID(ctx context.Context, id int64) (*model.Material, error) {
	query := `SELECT ` + materialColumns + ` FROM student_materials WHERE id = $1`

	m, err := scanMaterial(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, base.Classify("get material by id", err)
	}

	return m, nil
}

// ListForStudent материалы ученика, новые первыми. teacherID ограничивает выборку материалами одного учителя.
func (r *MaterialRepository) ListForStudent(ctx context.Context, studentID int64, teacherID *int64, limit int) ([]*model.Material, error) {
	query := `
		SELECT ` + materialColumns + `
		FROM student_materials
		WHERE student_id = $1 AND ($2::bigint IS NULL OR teacher_id = $2)
		ORDER BY created_at DESC, id DESC
	`
	args := []any{studentID, teacherID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, base.Classify("list student materials", err)
	}
	defer rows.Close()

	var materials []*model.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, m)
	}

	if err := rows.Err(); err != nil {
		return nil, base.Classify("list student materials", err)
	}

	return materials, nil
}

// Delete удаляет запись о материале
func (r *MaterialRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.ExecAffected(ctx, `DELETE FROM student_materials WHERE id = $1`, id)
	if err != nil {
		return base.Classify("delete material", err)
	}

	if affected == 0 {
		return fmt.Errorf("material: %w", apperr.ErrNotFound)
	}

	return nil
}

func scanMaterial(row pgx.Row) (*model.Material, error) {
	var m model.Material
	err := row.Scan(
		&m.ID,
		&m.TeacherID,
		&m.StudentID,
		&m.Title,
		&m.Description,
		&m.LinkURL,
		&m.StoredName,
		&m.FileName,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
