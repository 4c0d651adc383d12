package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ResponseRepository handles inbound reply rows and the append-only
// analytics_events fact table.
type ResponseRepository struct {
	db *sqlx.DB
}

func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

func (r *ResponseRepository) Create(ctx context.Context, messageID, contactID int64, text string, responseTimeMs *int64) (int64, error) {
	query := `
		INSERT INTO responses (message_id, contact_id, response_text, response_time, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query, messageID, contactID, text, responseTimeMs)
	if err != nil {
		return 0, fmt.Errorf("failed to save response: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

// RecordEvent appends an analytics fact. Never read back by this
// service.
func (r *ResponseRepository) RecordEvent(
	ctx context.Context,
	eventType string,
	eventData *string,
	userID, campaignID, messageID, contactID *int64,
) error {
	query := `
		INSERT INTO analytics_events (event_type, event_data, user_id, campaign_id, message_id, contact_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`

	if _, err := r.db.ExecContext(ctx, query, eventType, eventData, userID, campaignID, messageID, contactID); err != nil {
		return fmt.Errorf("failed to record analytics event: %w", err)
	}

	return nil
}
