package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lightsms/lightsms/internal/domain"
)

type TemplateRepository struct {
	db *sqlx.DB
}

func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, userID int64, name, content string) (*domain.MessageTemplate, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO message_templates (user_id, name, content, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, userID, name, content)
	if err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*domain.MessageTemplate, error) {
	var tpl domain.MessageTemplate
	query := `
		SELECT id, user_id, name, content, created_at, updated_at
		FROM message_templates
		WHERE id = ?
	`
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &tpl, nil
}

func (r *TemplateRepository) ListByUser(ctx context.Context, userID int64) ([]domain.MessageTemplate, error) {
	query := `
		SELECT id, user_id, name, content, created_at, updated_at
		FROM message_templates
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	var templates []domain.MessageTemplate
	if err := r.db.SelectContext(ctx, &templates, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return templates, nil
}
