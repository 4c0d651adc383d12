package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

// newMockDB wraps a sqlmock connection in sqlx for repository tests.
// Expectations double as assertions on the SQL itself: a query that
// drops a WHERE clause no longer matches and fails the test.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { _ = sqlxDB.Close() })

	return sqlxDB, mock
}

func contactColumns() []string {
	return []string{
		"id", "user_id", "group_id", "phone_number", "first_name", "last_name",
		"email", "is_active", "has_opted_out", "opt_out_date", "created_at", "updated_at",
	}
}

func TestResolveRecipients_ExcludesOptedOutContacts(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewContactRepository(db)

	now := time.Now()

	// The expectation requires the opt-out and is-active filters and
	// the already-messaged subquery; the store only ever hands back
	// rows that pass all three.
	rows := sqlmock.NewRows(contactColumns()).
		AddRow(int64(10), int64(7), int64(3), "+15550000001", nil, nil, nil, true, false, nil, now, now).
		AddRow(int64(11), int64(7), int64(3), "+15550000002", nil, nil, nil, true, false, nil, now, now)

	mock.ExpectQuery(`(?s)SELECT DISTINCT.*FROM contacts.*JOIN campaign_groups.*has_opted_out = FALSE.*is_active = TRUE.*NOT IN.*FROM sms_messages WHERE campaign_id`).
		WithArgs(int64(1), int64(1)).
		WillReturnRows(rows)

	contacts, err := repo.ResolveRecipients(ctx, 1)
	if err != nil {
		t.Fatalf("ResolveRecipients returned error: %v", err)
	}

	if len(contacts) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(contacts))
	}
	for _, c := range contacts {
		if c.HasOptedOut {
			t.Errorf("opted-out contact %d leaked into recipient resolution", c.ID)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveRecipients_EmptyTargetSet(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(`(?s)SELECT DISTINCT.*FROM contacts.*has_opted_out = FALSE`).
		WithArgs(int64(1), int64(1)).
		WillReturnRows(sqlmock.NewRows(contactColumns()))

	contacts, err := repo.ResolveRecipients(ctx, 1)
	if err != nil {
		t.Fatalf("ResolveRecipients returned error: %v", err)
	}
	if len(contacts) != 0 {
		t.Fatalf("expected no recipients, got %d", len(contacts))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
