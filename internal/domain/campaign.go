package domain

import "time"

type CampaignStatus string

const (
	CampaignDraft      CampaignStatus = "draft"
	CampaignScheduled  CampaignStatus = "scheduled"
	CampaignInProgress CampaignStatus = "in_progress"
	CampaignCompleted  CampaignStatus = "completed"
	CampaignCancelled  CampaignStatus = "cancelled"
)

type Campaign struct {
	ID            int64          `db:"id" json:"id"`
	UserID        int64          `db:"user_id" json:"userId"`
	Name          string         `db:"name" json:"name"`
	Message       string         `db:"message" json:"message"`
	Status        CampaignStatus `db:"status" json:"status"`
	ScheduledTime *time.Time     `db:"scheduled_time" json:"scheduledTime,omitempty"`
	StartedAt     *time.Time     `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt   *time.Time     `db:"completed_at" json:"completedAt,omitempty"`
	TemplateID    *int64         `db:"template_id" json:"templateId,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// RecipientResult is the per-contact verdict of one dispatch attempt.
type RecipientResult struct {
	ContactID   int64  `json:"contactId"`
	PhoneNumber string `json:"phoneNumber"`
	Success     bool   `json:"success"`
	ExternalID  string `json:"externalId,omitempty"`
	Error       string `json:"error,omitempty"`
}

// DispatchSummary aggregates one full pass over a campaign's recipients.
// Sent and Failed are computed from the persisted message rows after the
// pass, not from an in-flight counter.
type DispatchSummary struct {
	CampaignID int64             `json:"campaignId"`
	Sent       int64             `json:"sent"`
	Failed     int64             `json:"failed"`
	Results    []RecipientResult `json:"results"`
}
