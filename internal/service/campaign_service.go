package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lightsms/lightsms/environments"
	"github.com/lightsms/lightsms/internal/domain"
	"github.com/lightsms/lightsms/pkg/logger"
)

// Small internal interfaces so we can test without touching real
// MySQL, Redis or the SMS gateway.
type campaignRepository interface {
	Create(ctx context.Context, userID int64, name, message string, templateID *int64, scheduledTime *time.Time, groupIDs []int64) (*domain.Campaign, error)
	GetByID(ctx context.Context, id int64) (*domain.Campaign, error)
	BeginDispatch(ctx context.Context, id int64) (bool, error)
	Complete(ctx context.Context, id int64) error
	Cancel(ctx context.Context, id int64) (bool, error)
	GetDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error)
	ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]domain.Campaign, int64, error)
}

type contactRepository interface {
	CountOwnedGroups(ctx context.Context, userID int64, groupIDs []int64) (int, error)
	ResolveRecipients(ctx context.Context, campaignID int64) ([]domain.Contact, error)
}

type messageRepository interface {
	Create(ctx context.Context, campaignID, contactID int64, content string) (int64, error)
	MarkAccepted(ctx context.Context, id int64, externalID string) error
	MarkSendFailed(ctx context.Context, id int64, reason string) error
	CampaignCounts(ctx context.Context, campaignID int64) (sent, failed int64, err error)
}

type templateRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.MessageTemplate, error)
}

type smsGateway interface {
	Send(ctx context.Context, phone, message string) (*domain.GatewaySendResult, error)
}

type analyticsRecorder interface {
	RecordEvent(ctx context.Context, eventType string, eventData *string, userID, campaignID, messageID, contactID *int64) error
}

type QuotaInvalidator interface {
	InvalidateQuota(ctx context.Context, userID int64) error
}

// CampaignService drives the campaign lifecycle: creation, target
// resolution and the synchronous dispatch pass.
type CampaignService struct {
	campaigns campaignRepository
	contacts  contactRepository
	messages  messageRepository
	templates templateRepository
	gateway   smsGateway
	analytics analyticsRecorder
	cache     QuotaInvalidator
	config    environments.MessageConfig
}

func NewCampaignService(
	campaigns campaignRepository,
	contacts contactRepository,
	messages messageRepository,
	templates templateRepository,
	gateway smsGateway,
	analytics analyticsRecorder,
	cache QuotaInvalidator,
	config environments.MessageConfig,
) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		contacts:  contacts,
		messages:  messages,
		templates: templates,
		gateway:   gateway,
		analytics: analytics,
		cache:     cache,
		config:    config,
	}
}

// CreateCampaign validates the target groups and persists the campaign
// in 'draft' status, or 'scheduled' when a scheduled time is given.
func (s *CampaignService) CreateCampaign(
	ctx context.Context,
	userID int64,
	name, message string,
	templateID *int64,
	groupIDs []int64,
	scheduledTime *time.Time,
) (*domain.Campaign, error) {
	if len(groupIDs) == 0 {
		return nil, domain.NewValidationError("at least one target group is required")
	}

	groupIDs = dedupIDs(groupIDs)

	owned, err := s.contacts.CountOwnedGroups(ctx, userID, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to verify group ownership: %w", err)
	}
	if owned != len(groupIDs) {
		return nil, domain.NewValidationError("one or more target groups do not belong to this user")
	}

	if templateID != nil {
		tpl, err := s.templates.GetByID(ctx, *templateID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewValidationError("template %d not found", *templateID)
			}
			return nil, fmt.Errorf("failed to load template: %w", err)
		}
		if tpl.UserID != userID {
			return nil, domain.NewValidationError("template %d does not belong to this user", *templateID)
		}
		message = tpl.Content
	}

	if message == "" {
		return nil, domain.NewValidationError("message body or template is required")
	}

	if len(message) > s.config.MaxContentLength {
		return nil, domain.NewValidationError("message exceeds maximum length of %d characters", s.config.MaxContentLength)
	}

	campaign, err := s.campaigns.Create(ctx, userID, name, message, templateID, scheduledTime, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	logger.Infof("Created campaign %d (%q) for user %d targeting %d groups", campaign.ID, name, userID, len(groupIDs))

	return campaign, nil
}

func (s *CampaignService) GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	return s.campaigns.GetByID(ctx, id)
}

func (s *CampaignService) ListCampaigns(ctx context.Context, userID int64, page, pageSize int) ([]domain.Campaign, int64, error) {
	return s.campaigns.ListByUser(ctx, userID, page, pageSize)
}

// DispatchCampaign runs one synchronous pass over the campaign's
// resolved recipients. The status claim is a compare-and-swap, so a
// campaign already in_progress, completed or cancelled fails with
// InvalidStateError before any message row is written.
func (s *CampaignService) DispatchCampaign(ctx context.Context, campaignID int64) (*domain.DispatchSummary, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.campaigns.BeginDispatch(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to start dispatch: %w", err)
	}
	if !claimed {
		return nil, &domain.InvalidStateError{
			CampaignID: campaignID,
			Status:     campaign.Status,
			Wanted:     domain.CampaignInProgress,
		}
	}

	return s.dispatchPass(ctx, campaign)
}

// ResumeCampaign re-runs the dispatch pass for a campaign stuck in
// in_progress (e.g. after a crash). Recipient resolution skips
// contacts that already have a message row, so the pass is idempotent.
func (s *CampaignService) ResumeCampaign(ctx context.Context, campaignID int64) (*domain.DispatchSummary, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	if campaign.Status != domain.CampaignInProgress {
		return nil, &domain.InvalidStateError{
			CampaignID: campaignID,
			Status:     campaign.Status,
			Wanted:     domain.CampaignInProgress,
		}
	}

	return s.dispatchPass(ctx, campaign)
}

// CancelCampaign cancels a campaign that has not started dispatching
// yet. In-progress, completed and already-cancelled campaigns refuse
// the transition.
func (s *CampaignService) CancelCampaign(ctx context.Context, campaignID int64) error {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}

	cancelled, err := s.campaigns.Cancel(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to cancel campaign: %w", err)
	}
	if !cancelled {
		return &domain.InvalidStateError{
			CampaignID: campaignID,
			Status:     campaign.Status,
			Wanted:     domain.CampaignCancelled,
		}
	}

	logger.Infof("Cancelled campaign %d", campaignID)

	return nil
}

func (s *CampaignService) dispatchPass(ctx context.Context, campaign *domain.Campaign) (*domain.DispatchSummary, error) {
	recipients, err := s.contacts.ResolveRecipients(ctx, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipients: %w", err)
	}

	logger.Infof("Dispatching campaign %d to %d recipients", campaign.ID, len(recipients))

	results := make([]domain.RecipientResult, 0, len(recipients))
	seen := make(map[int64]bool, len(recipients))

	for _, contact := range recipients {
		// Contacts reachable through more than one target group are
		// sent to exactly once.
		if seen[contact.ID] {
			continue
		}
		seen[contact.ID] = true

		results = append(results, s.deliverToContact(ctx, campaign, &contact))
	}

	// Aggregate from the persisted rows, not an in-flight counter, so
	// the summary cannot drift from what readers see.
	sent, failed, err := s.messages.CampaignCounts(ctx, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate campaign results: %w", err)
	}

	if err := s.campaigns.Complete(ctx, campaign.ID); err != nil {
		return nil, fmt.Errorf("failed to complete campaign: %w", err)
	}

	if s.analytics != nil {
		data := fmt.Sprintf(`{"sent":%d,"failed":%d}`, sent, failed)
		if err := s.analytics.RecordEvent(ctx, "campaign_completed", &data, &campaign.UserID, &campaign.ID, nil, nil); err != nil {
			logger.Warnf("Failed to record campaign_completed event for campaign %d: %v", campaign.ID, err)
		}
	}

	if s.cache != nil {
		if err := s.cache.InvalidateQuota(ctx, campaign.UserID); err != nil {
			logger.Warnf("Failed to invalidate quota cache for user %d: %v", campaign.UserID, err)
		}
	}

	logger.Infof("Campaign %d completed: %d sent, %d failed", campaign.ID, sent, failed)

	return &domain.DispatchSummary{
		CampaignID: campaign.ID,
		Sent:       sent,
		Failed:     failed,
		Results:    results,
	}, nil
}

// deliverToContact records one attempt row, calls the gateway and
// stores the verdict. Failures stay on this contact's row; the batch
// goes on.
func (s *CampaignService) deliverToContact(
	ctx context.Context,
	campaign *domain.Campaign,
	contact *domain.Contact,
) domain.RecipientResult {
	result := domain.RecipientResult{
		ContactID:   contact.ID,
		PhoneNumber: contact.PhoneNumber,
	}

	msgID, err := s.messages.Create(ctx, campaign.ID, contact.ID, campaign.Message)
	if err != nil {
		logger.Errorf("Failed to create message row for contact %d in campaign %d: %v", contact.ID, campaign.ID, err)
		result.Error = err.Error()
		return result
	}

	sendCtx := ctx
	if s.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.config.SendTimeout)
		defer cancel()
	}

	resp, err := s.gateway.Send(sendCtx, contact.PhoneNumber, campaign.Message)
	if err != nil {
		logger.Errorf("Gateway send failed for message %d (contact %d): %v", msgID, contact.ID, err)
		result.Error = err.Error()

		if markErr := s.messages.MarkSendFailed(ctx, msgID, err.Error()); markErr != nil {
			logger.Errorf("Failed to mark message %d as failed: %v", msgID, markErr)
		}

		return result
	}

	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = "gateway rejected message"
		}

		logger.Warnf("Gateway rejected message %d (contact %d): %s", msgID, contact.ID, reason)
		result.Error = reason

		if markErr := s.messages.MarkSendFailed(ctx, msgID, reason); markErr != nil {
			logger.Errorf("Failed to mark message %d as failed: %v", msgID, markErr)
		}

		return result
	}

	if err := s.messages.MarkAccepted(ctx, msgID, resp.TextID); err != nil {
		logger.Errorf("Failed to record external id for message %d: %v", msgID, err)
	}

	result.Success = true
	result.ExternalID = resp.TextID

	return result
}

// DispatchDue dispatches every scheduled campaign whose time has
// passed. Called by the scheduler.
func (s *CampaignService) DispatchDue(ctx context.Context, now time.Time, limit int) ([]domain.DispatchSummary, error) {
	due, err := s.campaigns.GetDueScheduled(ctx, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due campaigns: %w", err)
	}

	if len(due) == 0 {
		return nil, nil
	}

	summaries := make([]domain.DispatchSummary, 0, len(due))

	for _, campaign := range due {
		summary, err := s.DispatchCampaign(ctx, campaign.ID)
		if err != nil {
			// Another worker may have claimed it in the meantime.
			if domain.IsInvalidState(err) {
				logger.Debugf("Campaign %d already claimed, skipping", campaign.ID)
				continue
			}
			logger.Errorf("Failed to dispatch due campaign %d: %v", campaign.ID, err)
			continue
		}
		summaries = append(summaries, *summary)
	}

	return summaries, nil
}

func dedupIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
