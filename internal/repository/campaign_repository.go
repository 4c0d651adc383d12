package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lightsms/lightsms/internal/domain"
)

// CampaignRepository handles database operations for campaigns and
// their group links.
type CampaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create persists a campaign and its group links in one transaction.
// When scheduledTime is set the campaign is created directly in
// 'scheduled' status, so creation and the draft->scheduled transition
// are atomic.
func (r *CampaignRepository) Create(
	ctx context.Context,
	userID int64,
	name, message string,
	templateID *int64,
	scheduledTime *time.Time,
	groupIDs []int64,
) (*domain.Campaign, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	status := domain.CampaignDraft
	if scheduledTime != nil {
		status = domain.CampaignScheduled
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO campaigns (user_id, name, message, status, scheduled_time, template_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, userID, name, message, status, scheduledTime, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	for _, groupID := range groupIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO campaign_groups (campaign_id, group_id) VALUES (?, ?)
		`, id, groupID); err != nil {
			return nil, fmt.Errorf("failed to link campaign to group %d: %w", groupID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit campaign: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	query := `
		SELECT id, user_id, name, message, status, scheduled_time, started_at, completed_at,
		       template_id, created_at, updated_at
		FROM campaigns
		WHERE id = ?
	`

	var campaign domain.Campaign
	if err := r.db.GetContext(ctx, &campaign, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return &campaign, nil
}

// BeginDispatch atomically claims a campaign for dispatch. It succeeds
// only for 'draft' or 'scheduled' campaigns, which guards against
// double dispatch: a second caller sees zero affected rows.
func (r *CampaignRepository) BeginDispatch(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = 'in_progress', started_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN ('draft', 'scheduled')
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim campaign for dispatch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 1, nil
}

// Complete moves an in_progress campaign to completed. Ordered strictly
// after all per-recipient rows are persisted by the caller.
func (r *CampaignRepository) Complete(ctx context.Context, id int64) error {
	query := `
		UPDATE campaigns
		SET status = 'completed', completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'in_progress'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to complete campaign: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no in_progress campaign found with id %d", id)
	}

	return nil
}

// Cancel moves a campaign to 'cancelled'. Only 'draft' and 'scheduled'
// campaigns can be cancelled; the caller learns from the return value
// whether the transition happened.
func (r *CampaignRepository) Cancel(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN ('draft', 'scheduled')
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to cancel campaign: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// GetDueScheduled returns scheduled campaigns whose scheduled_time has
// passed, oldest first.
func (r *CampaignRepository) GetDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error) {
	query := `
		SELECT id, user_id, name, message, status, scheduled_time, started_at, completed_at,
		       template_id, created_at, updated_at
		FROM campaigns
		WHERE status = 'scheduled' AND scheduled_time <= ?
		ORDER BY scheduled_time ASC
		LIMIT ?
	`

	var campaigns []domain.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to get due campaigns: %w", err)
	}

	return campaigns, nil
}

func (r *CampaignRepository) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]domain.Campaign, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	countQuery := "SELECT COUNT(*) FROM campaigns WHERE user_id = ?"
	if err := r.db.GetContext(ctx, &totalCount, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	query := `
		SELECT id, user_id, name, message, status, scheduled_time, started_at, completed_at,
		       template_id, created_at, updated_at
		FROM campaigns
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	var campaigns []domain.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, query, userID, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}

	return campaigns, totalCount, nil
}
