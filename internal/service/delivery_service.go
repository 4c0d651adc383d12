package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lightsms/lightsms/internal/domain"
	"github.com/lightsms/lightsms/pkg/logger"
)

const gatewayStatusDelivered = "DELIVERED"
const gatewayStatusFailed = "FAILED"

type messageTracker interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.SmsMessage, error)
	MarkDelivered(ctx context.Context, id int64, deliveryStatus string) error
	RecordDeliveryStatus(ctx context.Context, id int64, deliveryStatus string) error
	MarkDeliveryFailed(ctx context.Context, id int64, deliveryStatus string) error
}

type responseStore interface {
	Create(ctx context.Context, messageID, contactID int64, text string, responseTimeMs *int64) (int64, error)
	RecordEvent(ctx context.Context, eventType string, eventData *string, userID, campaignID, messageID, contactID *int64) error
}

type statusGateway interface {
	Status(ctx context.Context, textID string) (*domain.GatewayStatusResult, error)
}

// DeliveryService reconciles asynchronous gateway callbacks and
// inbound replies against previously sent messages.
type DeliveryService struct {
	messages  messageTracker
	responses responseStore
	gateway   statusGateway
}

func NewDeliveryService(messages messageTracker, responses responseStore, gateway statusGateway) *DeliveryService {
	return &DeliveryService{
		messages:  messages,
		responses: responses,
		gateway:   gateway,
	}
}

// CheckMessageStatus queries the gateway for a message's delivery
// status and reconciles the result into the matching row.
func (s *DeliveryService) CheckMessageStatus(ctx context.Context, externalID string) (*domain.GatewayStatusResult, error) {
	status, err := s.gateway.Status(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to check gateway status: %w", err)
	}

	if _, err := s.Reconcile(ctx, externalID, status.Status); err != nil {
		// The caller still gets the gateway payload; reconciliation is
		// best effort here and will be retried on the next poll.
		logger.Warnf("Failed to reconcile status for external id %s: %v", externalID, err)
	}

	return status, nil
}

// Reconcile maps a gateway status onto the internal message state.
// DELIVERED transitions the row to delivered (idempotently: the first
// delivered_at wins), a gateway failure marks it failed, anything else
// only records the raw status. Returns false when no row matches;
// unsolicited callbacks are tolerated, not errors.
func (s *DeliveryService) Reconcile(ctx context.Context, externalID, gatewayStatus string) (bool, error) {
	msg, err := s.messages.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debugf("No message matches external id %s, ignoring callback", externalID)
			return false, nil
		}
		return false, fmt.Errorf("failed to look up message: %w", err)
	}

	switch gatewayStatus {
	case gatewayStatusDelivered:
		if err := s.messages.MarkDelivered(ctx, msg.ID, gatewayStatus); err != nil {
			return false, fmt.Errorf("failed to mark message delivered: %w", err)
		}
	case gatewayStatusFailed:
		if err := s.messages.MarkDeliveryFailed(ctx, msg.ID, gatewayStatus); err != nil {
			return false, fmt.Errorf("failed to mark delivery failed: %w", err)
		}
	default:
		if err := s.messages.RecordDeliveryStatus(ctx, msg.ID, gatewayStatus); err != nil {
			return false, fmt.Errorf("failed to record delivery status: %w", err)
		}
	}

	return true, nil
}

// RecordReply stores an inbound reply against the matched message.
// An unmatched external id returns found=false with no row written;
// the webhook layer still acknowledges the gateway to avoid retry
// storms.
func (s *DeliveryService) RecordReply(ctx context.Context, externalID, fromPhone, text string) (int64, bool, error) {
	msg, err := s.messages.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Infof("Reply from %s for unknown external id %s, acknowledging without storing", fromPhone, externalID)
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to look up message: %w", err)
	}

	var responseTime *int64
	if msg.SentAt != nil {
		elapsed := time.Since(*msg.SentAt).Milliseconds()
		if elapsed < 0 {
			elapsed = 0
		}
		responseTime = &elapsed
	}

	id, err := s.responses.Create(ctx, msg.ID, msg.ContactID, text, responseTime)
	if err != nil {
		return 0, false, fmt.Errorf("failed to save reply: %w", err)
	}

	if err := s.responses.RecordEvent(ctx, "reply_received", nil, nil, &msg.CampaignID, &msg.ID, &msg.ContactID); err != nil {
		logger.Warnf("Failed to record reply_received event for message %d: %v", msg.ID, err)
	}

	logger.Infof("Recorded reply %d for message %d (contact %d)", id, msg.ID, msg.ContactID)

	return id, true, nil
}
