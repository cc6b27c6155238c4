package repository

import (
	"context"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LeadRepository struct {
	*base.Repository
}

func NewLeadRepository(pool *pgxpool.Pool) *LeadRepository {
	return &LeadRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет заявку
func (r *LeadRepository) Create(ctx context.Context, lead *model.Lead) error {
	query := `
		INSERT INTO leads (name, phone, email, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, lead.Name, lead.Phone, lead.Email, lead.Message).
		Scan(&lead.ID, &lead.CreatedAt)
	if err != nil {
		return base.Classify("create lead", err)
	}

	return nil
}
