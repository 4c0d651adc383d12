package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMarkDelivered_SecondCallbackLeavesRowUntouched(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	guarded := `(?s)UPDATE sms_messages.*SET status = 'delivered'.*status <> 'delivered'`

	// First callback transitions the row and stamps delivered_at.
	mock.ExpectExec(guarded).
		WithArgs("DELIVERED", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// A duplicate callback matches zero rows: the guard keeps the
	// first delivered_at.
	mock.ExpectExec(guarded).
		WithArgs("DELIVERED", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkDelivered(ctx, 5, "DELIVERED"); err != nil {
		t.Fatalf("first MarkDelivered returned error: %v", err)
	}
	if err := repo.MarkDelivered(ctx, 5, "DELIVERED"); err != nil {
		t.Fatalf("second MarkDelivered returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkDeliveryFailed_DeliveredRowNotDemoted(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	// The same guard protects against out-of-order callbacks: a late
	// FAILED report on an already-delivered row matches nothing.
	mock.ExpectExec(`(?s)UPDATE sms_messages.*SET status = 'failed'.*status <> 'delivered'`).
		WithArgs("FAILED", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkDeliveryFailed(ctx, 5, "FAILED"); err != nil {
		t.Fatalf("MarkDeliveryFailed returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateContactRejectedByUniqueKey(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)

	// The (campaign_id, contact_id) unique key is the store-level
	// backstop against two concurrent passes double-inserting for the
	// same contact.
	mock.ExpectExec(`(?s)INSERT INTO sms_messages`).
		WithArgs(int64(1), int64(10), "hello").
		WillReturnError(fmt.Errorf("Error 1062 (23000): Duplicate entry '1-10' for key 'idx_sms_messages_campaign_contact'"))

	if _, err := repo.Create(ctx, 1, 10, "hello"); err == nil {
		t.Fatalf("expected duplicate insert to fail")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
