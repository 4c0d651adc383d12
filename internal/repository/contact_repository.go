package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lightsms/lightsms/internal/domain"
)

// ContactRepository handles database operations for contacts and
// contact groups.
type ContactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) CreateGroup(ctx context.Context, userID int64, name string, description *string) (*domain.ContactGroup, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_groups (user_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, userID, name, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact group: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetGroupByID(ctx, id)
}

func (r *ContactRepository) GetGroupByID(ctx context.Context, id int64) (*domain.ContactGroup, error) {
	var group domain.ContactGroup
	query := `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM contact_groups
		WHERE id = ?
	`
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact group: %w", err)
	}

	return &group, nil
}

func (r *ContactRepository) ListGroups(ctx context.Context, userID int64) ([]domain.ContactGroup, error) {
	query := `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM contact_groups
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	var groups []domain.ContactGroup
	if err := r.db.SelectContext(ctx, &groups, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list contact groups: %w", err)
	}

	return groups, nil
}

// DeleteGroup removes a group. Contacts keep their rows; only the
// group reference is cleared.
func (r *ContactRepository) DeleteGroup(ctx context.Context, userID, groupID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE contacts SET group_id = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE group_id = ? AND user_id = ?
	`, groupID, userID); err != nil {
		return fmt.Errorf("failed to detach contacts from group: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM contact_groups WHERE id = ? AND user_id = ?
	`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete contact group: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit()
}

// CountOwnedGroups returns how many of the given group ids belong to
// the user. Used to validate campaign targets.
func (r *ContactRepository) CountOwnedGroups(ctx context.Context, userID int64, groupIDs []int64) (int, error) {
	if len(groupIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(
		"SELECT COUNT(DISTINCT id) FROM contact_groups WHERE user_id = ? AND id IN (?)",
		userID, groupIDs,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to build group ownership query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to count owned groups: %w", err)
	}

	return count, nil
}

func (r *ContactRepository) CreateContact(
	ctx context.Context,
	userID int64,
	groupID *int64,
	phoneNumber string,
	firstName, lastName, email *string,
) (*domain.Contact, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (user_id, group_id, phone_number, first_name, last_name, email,
		                      is_active, has_opted_out, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, TRUE, FALSE, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, userID, groupID, phoneNumber, firstName, lastName, email)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return r.GetContactByID(ctx, id)
}

func (r *ContactRepository) GetContactByID(ctx context.Context, id int64) (*domain.Contact, error) {
	var contact domain.Contact
	query := `
		SELECT id, user_id, group_id, phone_number, first_name, last_name, email,
		       is_active, has_opted_out, opt_out_date, created_at, updated_at
		FROM contacts
		WHERE id = ?
	`
	if err := r.db.GetContext(ctx, &contact, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return &contact, nil
}

func (r *ContactRepository) ListContacts(ctx context.Context, userID int64, page, pageSize int) ([]domain.Contact, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	if err := r.db.GetContext(ctx, &totalCount, "SELECT COUNT(*) FROM contacts WHERE user_id = ?", userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count contacts: %w", err)
	}

	query := `
		SELECT id, user_id, group_id, phone_number, first_name, last_name, email,
		       is_active, has_opted_out, opt_out_date, created_at, updated_at
		FROM contacts
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	var contacts []domain.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, userID, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list contacts: %w", err)
	}

	return contacts, totalCount, nil
}

// OptOut permanently withdraws a contact from future sends.
func (r *ContactRepository) OptOut(ctx context.Context, userID, contactID int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE contacts
		SET has_opted_out = TRUE, opt_out_date = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`, contactID, userID)
	if err != nil {
		return fmt.Errorf("failed to opt out contact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// ResolveRecipients expands a campaign's target groups into distinct
// contacts. Opted-out and inactive contacts are excluded, and so are
// contacts that already have a message row for the campaign, which
// makes a dispatch pass safely re-runnable.
func (r *ContactRepository) ResolveRecipients(ctx context.Context, campaignID int64) ([]domain.Contact, error) {
	query := `
		SELECT DISTINCT c.id, c.user_id, c.group_id, c.phone_number, c.first_name, c.last_name,
		       c.email, c.is_active, c.has_opted_out, c.opt_out_date, c.created_at, c.updated_at
		FROM contacts c
		JOIN campaign_groups cg ON cg.group_id = c.group_id
		WHERE cg.campaign_id = ?
		  AND c.has_opted_out = FALSE
		  AND c.is_active = TRUE
		  AND c.id NOT IN (
			SELECT contact_id FROM sms_messages WHERE campaign_id = ?
		  )
		ORDER BY c.id ASC
	`

	var contacts []domain.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, campaignID, campaignID); err != nil {
		return nil, fmt.Errorf("failed to resolve campaign recipients: %w", err)
	}

	return contacts, nil
}
