package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lightsms/lightsms/internal/domain"
)

// MessageRepository handles database operations for sms_messages.
type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts an outbound attempt in 'sent' status pending the
// gateway verdict.
func (r *MessageRepository) Create(ctx context.Context, campaignID, contactID int64, content string) (int64, error) {
	query := `
		INSERT INTO sms_messages (campaign_id, contact_id, message_content, status, sent_at, created_at)
		VALUES (?, ?, ?, 'sent', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query, campaignID, contactID, content)
	if err != nil {
		return 0, fmt.Errorf("failed to create message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

// MarkAccepted records the gateway-assigned external id on a message
// the gateway accepted.
func (r *MessageRepository) MarkAccepted(ctx context.Context, id int64, externalID string) error {
	query := `
		UPDATE sms_messages
		SET external_id = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, externalID, id)
	if err != nil {
		return fmt.Errorf("failed to mark message as accepted: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no message found with id %d", id)
	}

	return nil
}

// MarkSendFailed records a per-recipient gateway failure.
func (r *MessageRepository) MarkSendFailed(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE sms_messages
		SET status = 'failed', error_message = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, reason, id); err != nil {
		return fmt.Errorf("failed to mark message as failed: %w", err)
	}

	return nil
}

func (r *MessageRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.SmsMessage, error) {
	query := `
		SELECT id, campaign_id, contact_id, message_content, status, error_message,
		       external_id, sent_at, delivered_at, delivery_status, created_at
		FROM sms_messages
		WHERE external_id = ?
	`

	var message domain.SmsMessage
	if err := r.db.GetContext(ctx, &message, query, externalID); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message by external id: %w", err)
	}

	return &message, nil
}

// MarkDelivered transitions a message to 'delivered'. The WHERE guard
// keeps the first delivered_at on duplicate callbacks.
func (r *MessageRepository) MarkDelivered(ctx context.Context, id int64, deliveryStatus string) error {
	query := `
		UPDATE sms_messages
		SET status = 'delivered', delivery_status = ?, delivered_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status <> 'delivered'
	`

	if _, err := r.db.ExecContext(ctx, query, deliveryStatus, id); err != nil {
		return fmt.Errorf("failed to mark message as delivered: %w", err)
	}

	return nil
}

// RecordDeliveryStatus stores the raw gateway status without a state
// transition (message stays 'sent').
func (r *MessageRepository) RecordDeliveryStatus(ctx context.Context, id int64, deliveryStatus string) error {
	query := `
		UPDATE sms_messages
		SET delivery_status = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, deliveryStatus, id); err != nil {
		return fmt.Errorf("failed to record delivery status: %w", err)
	}

	return nil
}

// MarkDeliveryFailed transitions a message to 'failed' on a gateway
// error report. A row that already reached 'delivered' stays
// delivered; a late FAILED callback must not demote it.
func (r *MessageRepository) MarkDeliveryFailed(ctx context.Context, id int64, deliveryStatus string) error {
	query := `
		UPDATE sms_messages
		SET status = 'failed', delivery_status = ?
		WHERE id = ? AND status <> 'delivered'
	`

	if _, err := r.db.ExecContext(ctx, query, deliveryStatus, id); err != nil {
		return fmt.Errorf("failed to mark delivery as failed: %w", err)
	}

	return nil
}

// CampaignCounts projects the sent/failed totals from the persisted
// rows of one campaign. Delivered rows count as sent.
func (r *MessageRepository) CampaignCounts(ctx context.Context, campaignID int64) (sent, failed int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status IN ('sent', 'delivered') THEN 1 ELSE 0 END), 0) AS sent,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)              AS failed
		FROM sms_messages
		WHERE campaign_id = ?
	`

	var counts struct {
		Sent   int64 `db:"sent"`
		Failed int64 `db:"failed"`
	}

	if err := r.db.GetContext(ctx, &counts, query, campaignID); err != nil {
		return 0, 0, fmt.Errorf("failed to count campaign messages: %w", err)
	}

	return counts.Sent, counts.Failed, nil
}

// CountForUserBetween counts messages belonging to the user's
// campaigns created in [from, until]. Read-committed is enough here:
// a concurrent dispatch may undercount slightly, never overcount.
func (r *MessageRepository) CountForUserBetween(ctx context.Context, userID int64, from, until time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM sms_messages m
		JOIN campaigns c ON c.id = m.campaign_id
		WHERE c.user_id = ?
		  AND m.created_at >= ?
		  AND m.created_at <= ?
	`

	var count int64
	if err := r.db.GetContext(ctx, &count, query, userID, from, until); err != nil {
		return 0, fmt.Errorf("failed to count user messages: %w", err)
	}

	return count, nil
}

func (r *MessageRepository) ListByCampaign(ctx context.Context, campaignID int64, page, pageSize int) ([]domain.SmsMessage, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM sms_messages WHERE campaign_id = ?", campaignID); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaign messages: %w", err)
	}

	query := `
		SELECT id, campaign_id, contact_id, message_content, status, error_message,
		       external_id, sent_at, delivered_at, delivery_status, created_at
		FROM sms_messages
		WHERE campaign_id = ?
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?
	`

	var messages []domain.SmsMessage
	if err := r.db.SelectContext(ctx, &messages, query, campaignID, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list campaign messages: %w", err)
	}

	return messages, totalCount, nil
}
