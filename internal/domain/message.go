package domain

import "time"

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusFailed    MessageStatus = "failed"
)

// SmsMessage is one outbound attempt for one contact of one campaign.
// ExternalID is the gateway-assigned correlation id; it is unique once
// set and is the only key used to match status callbacks and replies.
type SmsMessage struct {
	ID             int64         `db:"id" json:"id"`
	CampaignID     int64         `db:"campaign_id" json:"campaignId"`
	ContactID      int64         `db:"contact_id" json:"contactId"`
	MessageContent string        `db:"message_content" json:"messageContent"`
	Status         MessageStatus `db:"status" json:"status"`
	ErrorMessage   *string       `db:"error_message" json:"errorMessage,omitempty"`
	ExternalID     *string       `db:"external_id" json:"externalId,omitempty"`
	SentAt         *time.Time    `db:"sent_at" json:"sentAt,omitempty"`
	DeliveredAt    *time.Time    `db:"delivered_at" json:"deliveredAt,omitempty"`
	DeliveryStatus *string       `db:"delivery_status" json:"deliveryStatus,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
}

type Response struct {
	ID           int64     `db:"id" json:"id"`
	MessageID    int64     `db:"message_id" json:"messageId"`
	ContactID    int64     `db:"contact_id" json:"contactId"`
	ResponseText string    `db:"response_text" json:"responseText"`
	ResponseTime *int64    `db:"response_time" json:"responseTime,omitempty"` // ms between sent_at and receipt
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type AnalyticsEvent struct {
	ID         int64     `db:"id" json:"id"`
	EventType  string    `db:"event_type" json:"eventType"`
	EventData  *string   `db:"event_data" json:"eventData,omitempty"`
	UserID     *int64    `db:"user_id" json:"userId,omitempty"`
	CampaignID *int64    `db:"campaign_id" json:"campaignId,omitempty"`
	MessageID  *int64    `db:"message_id" json:"messageId,omitempty"`
	ContactID  *int64    `db:"contact_id" json:"contactId,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// GatewaySendResult is the outcome of one gateway send call.
type GatewaySendResult struct {
	Success bool   `json:"success"`
	TextID  string `json:"textId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GatewayStatusResult is the payload of a gateway status lookup.
// Status is the provider vocabulary ("DELIVERED", "SENDING", ...).
type GatewayStatusResult struct {
	Status string `json:"status"`
}

// QuotaView is the current billing-period usage snapshot for one user.
type QuotaView struct {
	Total     int64     `json:"quotaTotal"`
	Used      int64     `json:"quotaUsed"`
	Remaining int64     `json:"quotaRemaining"`
	ResetDate time.Time `json:"resetDate"`
}
