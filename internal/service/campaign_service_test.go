package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lightsms/lightsms/environments"
	"github.com/lightsms/lightsms/internal/domain"
)

//
// Test fakes – only for this file.
//

type fakeCampaignRepo struct {
	campaigns map[int64]*domain.Campaign

	completeCalls []int64
}

func (r *fakeCampaignRepo) Create(
	ctx context.Context,
	userID int64,
	name, message string,
	templateID *int64,
	scheduledTime *time.Time,
	groupIDs []int64,
) (*domain.Campaign, error) {
	status := domain.CampaignDraft
	if scheduledTime != nil {
		status = domain.CampaignScheduled
	}
	campaign := &domain.Campaign{
		ID:            int64(len(r.campaigns) + 1),
		UserID:        userID,
		Name:          name,
		Message:       message,
		Status:        status,
		ScheduledTime: scheduledTime,
		TemplateID:    templateID,
	}
	if r.campaigns == nil {
		r.campaigns = make(map[int64]*domain.Campaign)
	}
	r.campaigns[campaign.ID] = campaign
	return campaign, nil
}

func (r *fakeCampaignRepo) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *campaign
	return &copied, nil
}

func (r *fakeCampaignRepo) BeginDispatch(ctx context.Context, id int64) (bool, error) {
	campaign, ok := r.campaigns[id]
	if !ok {
		return false, nil
	}
	if campaign.Status != domain.CampaignDraft && campaign.Status != domain.CampaignScheduled {
		return false, nil
	}
	campaign.Status = domain.CampaignInProgress
	return true, nil
}

func (r *fakeCampaignRepo) Complete(ctx context.Context, id int64) error {
	r.completeCalls = append(r.completeCalls, id)
	if campaign, ok := r.campaigns[id]; ok && campaign.Status == domain.CampaignInProgress {
		campaign.Status = domain.CampaignCompleted
	}
	return nil
}

func (r *fakeCampaignRepo) Cancel(ctx context.Context, id int64) (bool, error) {
	campaign, ok := r.campaigns[id]
	if !ok {
		return false, nil
	}
	if campaign.Status != domain.CampaignDraft && campaign.Status != domain.CampaignScheduled {
		return false, nil
	}
	campaign.Status = domain.CampaignCancelled
	return true, nil
}

func (r *fakeCampaignRepo) GetDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error) {
	var due []domain.Campaign
	for _, campaign := range r.campaigns {
		if campaign.Status == domain.CampaignScheduled && campaign.ScheduledTime != nil && !campaign.ScheduledTime.After(now) {
			due = append(due, *campaign)
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (r *fakeCampaignRepo) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]domain.Campaign, int64, error) {
	return nil, 0, nil
}

type fakeContactRepo struct {
	ownedGroups int
	recipients  []domain.Contact
}

func (r *fakeContactRepo) CountOwnedGroups(ctx context.Context, userID int64, groupIDs []int64) (int, error) {
	return r.ownedGroups, nil
}

func (r *fakeContactRepo) ResolveRecipients(ctx context.Context, campaignID int64) ([]domain.Contact, error) {
	return r.recipients, nil
}

type fakeMessageRow struct {
	id        int64
	contactID int64
	status    domain.MessageStatus
}

type fakeMessageRepo struct {
	rows []fakeMessageRow
}

func (r *fakeMessageRepo) Create(ctx context.Context, campaignID, contactID int64, content string) (int64, error) {
	id := int64(len(r.rows) + 1)
	r.rows = append(r.rows, fakeMessageRow{id: id, contactID: contactID, status: domain.StatusSent})
	return id, nil
}

func (r *fakeMessageRepo) MarkAccepted(ctx context.Context, id int64, externalID string) error {
	return nil
}

func (r *fakeMessageRepo) MarkSendFailed(ctx context.Context, id int64, reason string) error {
	for i := range r.rows {
		if r.rows[i].id == id {
			r.rows[i].status = domain.StatusFailed
		}
	}
	return nil
}

func (r *fakeMessageRepo) CampaignCounts(ctx context.Context, campaignID int64) (int64, int64, error) {
	var sent, failed int64
	for _, row := range r.rows {
		if row.status == domain.StatusFailed {
			failed++
		} else {
			sent++
		}
	}
	return sent, failed, nil
}

type fakeTemplateRepo struct {
	templates map[int64]*domain.MessageTemplate
}

func (r *fakeTemplateRepo) GetByID(ctx context.Context, id int64) (*domain.MessageTemplate, error) {
	tpl, ok := r.templates[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tpl, nil
}

type fakeGateway struct {
	failPhones   map[string]bool
	rejectPhones map[string]string

	sentTo []string
}

func (g *fakeGateway) Send(ctx context.Context, phone, message string) (*domain.GatewaySendResult, error) {
	g.sentTo = append(g.sentTo, phone)

	if g.failPhones[phone] {
		return nil, fmt.Errorf("simulated gateway error")
	}
	if reason, ok := g.rejectPhones[phone]; ok {
		return &domain.GatewaySendResult{Success: false, Error: reason}, nil
	}
	return &domain.GatewaySendResult{Success: true, TextID: "text-" + phone}, nil
}

type fakeAnalytics struct {
	events []string
}

func (a *fakeAnalytics) RecordEvent(ctx context.Context, eventType string, eventData *string, userID, campaignID, messageID, contactID *int64) error {
	a.events = append(a.events, eventType)
	return nil
}

type fakeInvalidator struct {
	invalidated []int64
}

func (c *fakeInvalidator) InvalidateQuota(ctx context.Context, userID int64) error {
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func testContact(id int64, phone string) domain.Contact {
	return domain.Contact{ID: id, PhoneNumber: phone, IsActive: true}
}

func newTestCampaignService(
	campaigns *fakeCampaignRepo,
	contacts *fakeContactRepo,
	messages *fakeMessageRepo,
	templates *fakeTemplateRepo,
	gateway *fakeGateway,
	analytics *fakeAnalytics,
	cache *fakeInvalidator,
) *CampaignService {
	if templates == nil {
		templates = &fakeTemplateRepo{}
	}
	// A nil *fakeInvalidator must stay a nil interface value, same as
	// the real wiring when no cache is configured.
	var invalidator QuotaInvalidator
	if cache != nil {
		invalidator = cache
	}
	return NewCampaignService(
		campaigns,
		contacts,
		messages,
		templates,
		gateway,
		analytics,
		invalidator,
		environments.MessageConfig{
			MaxContentLength: 1000,
			SendTimeout:      time.Second,
		},
	)
}

//
// Tests
//

func TestDispatchCampaign_MixedResults(t *testing.T) {
	ctx := context.Background()

	campaigns := &fakeCampaignRepo{
		campaigns: map[int64]*domain.Campaign{
			1: {ID: 1, UserID: 7, Message: "hello", Status: domain.CampaignDraft},
		},
	}
	// The opted-out contact never shows up here: recipient resolution
	// excludes it before the dispatch loop runs.
	contacts := &fakeContactRepo{
		recipients: []domain.Contact{
			testContact(10, "+15550000001"),
			testContact(11, "+15550000002"),
		},
	}
	messages := &fakeMessageRepo{}
	gateway := &fakeGateway{
		rejectPhones: map[string]string{"+15550000002": "number inactive"},
	}
	analytics := &fakeAnalytics{}
	cache := &fakeInvalidator{}

	svc := newTestCampaignService(campaigns, contacts, messages, nil, gateway, analytics, cache)

	summary, err := svc.DispatchCampaign(ctx, 1)
	if err != nil {
		t.Fatalf("DispatchCampaign returned error: %v", err)
	}

	if summary.Sent != 1 {
		t.Errorf("expected Sent=1, got %d", summary.Sent)
	}
	if summary.Failed != 1 {
		t.Errorf("expected Failed=1, got %d", summary.Failed)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("expected 2 recipient results, got %d", len(summary.Results))
	}
	if len(messages.rows) != 2 {
		t.Errorf("expected 2 message rows, got %d", len(messages.rows))
	}
	if campaigns.campaigns[1].Status != domain.CampaignCompleted {
		t.Errorf("expected campaign completed, got %s", campaigns.campaigns[1].Status)
	}
	if len(analytics.events) != 1 || analytics.events[0] != "campaign_completed" {
		t.Errorf("expected one campaign_completed event, got %v", analytics.events)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != 7 {
		t.Errorf("expected quota invalidation for user 7, got %v", cache.invalidated)
	}
}

func TestDispatchCampaign_CompletedCampaignRejected(t *testing.T) {
	ctx := context.Background()

	campaigns := &fakeCampaignRepo{
		campaigns: map[int64]*domain.Campaign{
			1: {ID: 1, UserID: 7, Message: "hello", Status: domain.CampaignCompleted},
		},
	}
	messages := &fakeMessageRepo{}
	gateway := &fakeGateway{}

	svc := newTestCampaignService(campaigns, &fakeContactRepo{}, messages, nil, gateway, &fakeAnalytics{}, nil)

	_, err := svc.DispatchCampaign(ctx, 1)
	if err == nil {
		t.Fatalf("expected error dispatching completed campaign")
	}
	if !domain.IsInvalidState(err) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	if len(messages.rows) != 0 {
		t.Errorf("expected no message rows, got %d", len(messages.rows))
	}
	if len(gateway.sentTo) != 0 {
		t.Errorf("expected no gateway calls, got %d", len(gateway.sentTo))
	}
}

func TestDispatchCampaign_DeduplicatesRecipients(t *testing.T) {
	ctx := context.Background()

	campaigns := &fakeCampaignRepo{
		campaigns: map[int64]*domain.Campaign{
			1: {ID: 1, UserID: 7, Message: "hello", Status: domain.CampaignDraft},
		},
	}
	// Same contact reachable through two target groups.
	contacts := &fakeContactRepo{
		recipients: []domain.Contact{
			testContact(10, "+15550000001"),
			testContact(10, "+15550000001"),
		},
	}
	messages := &fakeMessageRepo{}
	gateway := &fakeGateway{}

	svc := newTestCampaignService(campaigns, contacts, messages, nil, gateway, &fakeAnalytics{}, nil)

	summary, err := svc.DispatchCampaign(ctx, 1)
	if err != nil {
		t.Fatalf("DispatchCampaign returned error: %v", err)
	}

	if len(gateway.sentTo) != 1 {
		t.Errorf("expected 1 gateway call, got %d", len(gateway.sentTo))
	}
	if summary.Sent != 1 {
		t.Errorf("expected Sent=1, got %d", summary.Sent)
	}
}

func TestDispatchCampaign_GatewayErrorMarksRowFailed(t *testing.T) {
	ctx := context.Background()

	campaigns := &fakeCampaignRepo{
		campaigns: map[int64]*domain.Campaign{
			1: {ID: 1, UserID: 7, Message: "hello", Status: domain.CampaignDraft},
		},
	}
	contacts := &fakeContactRepo{
		recipients: []domain.Contact{testContact(10, "+15550000001")},
	}
	messages := &fakeMessageRepo{}
	gateway := &fakeGateway{
		failPhones: map[string]bool{"+15550000001": true},
	}

	svc := newTestCampaignService(campaigns, contacts, messages, nil, gateway, &fakeAnalytics{}, nil)

	summary, err := svc.DispatchCampaign(ctx, 1)
	if err != nil {
		t.Fatalf("DispatchCampaign returned error: %v", err)
	}

	if summary.Failed != 1 {
		t.Errorf("expected Failed=1, got %d", summary.Failed)
	}
	if len(messages.rows) != 1 || messages.rows[0].status != domain.StatusFailed {
		t.Errorf("expected the single row marked failed, got %+v", messages.rows)
	}
	// A transport failure still completes the pass.
	if campaigns.campaigns[1].Status != domain.CampaignCompleted {
		t.Errorf("expected campaign completed, got %s", campaigns.campaigns[1].Status)
	}
}

func TestResumeCampaign_RequiresInProgress(t *testing.T) {
	ctx := context.Background()

	campaigns := &fakeCampaignRepo{
		campaigns: map[int64]*domain.Campaign{
			1: {ID: 1, UserID: 7, Message: "hello", Status: domain.CampaignDraft},
		},
	}

	svc := newTestCampaignService(campaigns, &fakeContactRepo{}, &fakeMessageRepo{}, nil, &fakeGateway{}, &fakeAnalytics{}, nil)

	_, err := svc.ResumeCampaign(ctx, 1)
	if !domain.IsInvalidState(err) {
		t.Fatalf("expected InvalidStateError for draft campaign, got %v", err)
	}
}

func TestResumeCampaign_ReprocessesRemainingRecipients(t *testing.T) {
	ctx := context.Background()

	campaigns := &fakeCampaignRepo{
		campaigns: map[int64]*domain.Campaign{
			1: {ID: 1, UserID: 7, Message: "hello", Status: domain.CampaignInProgress},
		},
	}
	// Resolution already excludes contacts with an existing message
	// row, so only the remaining recipient comes back.
	contacts := &fakeContactRepo{
		recipients: []domain.Contact{testContact(11, "+15550000002")},
	}
	messages := &fakeMessageRepo{}
	gateway := &fakeGateway{}

	svc := newTestCampaignService(campaigns, contacts, messages, nil, gateway, &fakeAnalytics{}, nil)

	summary, err := svc.ResumeCampaign(ctx, 1)
	if err != nil {
		t.Fatalf("ResumeCampaign returned error: %v", err)
	}

	if len(gateway.sentTo) != 1 {
		t.Errorf("expected 1 gateway call, got %d", len(gateway.sentTo))
	}
	if summary.Sent != 1 {
		t.Errorf("expected Sent=1, got %d", summary.Sent)
	}
	if campaigns.campaigns[1].Status != domain.CampaignCompleted {
		t.Errorf("expected campaign completed, got %s", campaigns.campaigns[1].Status)
	}
}

func TestCreateCampaign_EmptyGroupsRejected(t *testing.T) {
	ctx := context.Background()

	svc := newTestCampaignService(&fakeCampaignRepo{}, &fakeContactRepo{}, &fakeMessageRepo{}, nil, &fakeGateway{}, &fakeAnalytics{}, nil)

	_, err := svc.CreateCampaign(ctx, 7, "launch", "hello", nil, nil, nil)
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateCampaign_ForeignGroupRejected(t *testing.T) {
	ctx := context.Background()

	// Only one of the two requested groups belongs to the user.
	contacts := &fakeContactRepo{ownedGroups: 1}

	svc := newTestCampaignService(&fakeCampaignRepo{}, contacts, &fakeMessageRepo{}, nil, &fakeGateway{}, &fakeAnalytics{}, nil)

	_, err := svc.CreateCampaign(ctx, 7, "launch", "hello", nil, []int64{1, 2}, nil)
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateCampaign_TemplateBodyUsed(t *testing.T) {
	ctx := context.Background()

	templateID := int64(4)
	campaigns := &fakeCampaignRepo{}
	contacts := &fakeContactRepo{ownedGroups: 1}
	templates := &fakeTemplateRepo{
		templates: map[int64]*domain.MessageTemplate{
			4: {ID: 4, UserID: 7, Name: "welcome", Content: "welcome aboard"},
		},
	}

	svc := newTestCampaignService(campaigns, contacts, &fakeMessageRepo{}, templates, &fakeGateway{}, &fakeAnalytics{}, nil)

	campaign, err := svc.CreateCampaign(ctx, 7, "launch", "", &templateID, []int64{1}, nil)
	if err != nil {
		t.Fatalf("CreateCampaign returned error: %v", err)
	}

	if campaign.Message != "welcome aboard" {
		t.Errorf("expected template content as message, got %q", campaign.Message)
	}
	if campaign.Status != domain.CampaignDraft {
		t.Errorf("expected draft status, got %s", campaign.Status)
	}
}

func TestCreateCampaign_ForeignTemplateRejected(t *testing.T) {
	ctx := context.Background()

	templateID := int64(4)
	contacts := &fakeContactRepo{ownedGroups: 1}
	templates := &fakeTemplateRepo{
		templates: map[int64]*domain.MessageTemplate{
			4: {ID: 4, UserID: 99, Content: "not yours"},
		},
	}

	svc := newTestCampaignService(&fakeCampaignRepo{}, contacts, &fakeMessageRepo{}, templates, &fakeGateway{}, &fakeAnalytics{}, nil)

	_, err := svc.CreateCampaign(ctx, 7, "launch", "", &templateID, []int64{1}, nil)
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateCampaign_ScheduledTimeSetsScheduledStatus(t *testing.T) {
	ctx := context.Background()

	contacts := &fakeContactRepo{ownedGroups: 1}
	svc := newTestCampaignService(&fakeCampaignRepo{}, contacts, &fakeMessageRepo{}, nil, &fakeGateway{}, &fakeAnalytics{}, nil)

	when := time.Now().Add(time.Hour)
	campaign, err := svc.CreateCampaign(ctx, 7, "launch", "hello", nil, []int64{1}, &when)
	if err != nil {
		t.Fatalf("CreateCampaign returned error: %v", err)
	}

	if campaign.Status != domain.CampaignScheduled {
		t.Errorf("expected scheduled status, got %s", campaign.Status)
	}
}

func TestCancelCampaign_DraftCancelled(t *testing.T) {
	ctx := context.Background()

	campaigns := &fakeCampaignRepo{
		campaigns: map[int64]*domain.Campaign{
			1: {ID: 1, UserID: 7, Message: "hello", Status: domain.CampaignDraft},
		},
	}

	svc := newTestCampaignService(campaigns, &fakeContactRepo{}, &fakeMessageRepo{}, nil, &fakeGateway{}, &fakeAnalytics{}, nil)

	if err := svc.CancelCampaign(ctx, 1); err != nil {
		t.Fatalf("CancelCampaign returned error: %v", err)
	}

	if campaigns.campaigns[1].Status != domain.CampaignCancelled {
		t.Errorf("expected cancelled status, got %s", campaigns.campaigns[1].Status)
	}
}

func TestCancelCampaign_InProgressRejected(t *testing.T) {
	ctx := context.Background()

	campaigns := &fakeCampaignRepo{
		campaigns: map[int64]*domain.Campaign{
			1: {ID: 1, UserID: 7, Message: "hello", Status: domain.CampaignInProgress},
		},
	}

	svc := newTestCampaignService(campaigns, &fakeContactRepo{}, &fakeMessageRepo{}, nil, &fakeGateway{}, &fakeAnalytics{}, nil)

	err := svc.CancelCampaign(ctx, 1)
	if !domain.IsInvalidState(err) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	if campaigns.campaigns[1].Status != domain.CampaignInProgress {
		t.Errorf("expected status unchanged, got %s", campaigns.campaigns[1].Status)
	}
}

func TestDispatchDue_SkipsAlreadyClaimed(t *testing.T) {
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	campaigns := &fakeCampaignRepo{
		campaigns: map[int64]*domain.Campaign{
			1: {ID: 1, UserID: 7, Message: "hello", Status: domain.CampaignScheduled, ScheduledTime: &past},
			2: {ID: 2, UserID: 7, Message: "hello", Status: domain.CampaignInProgress, ScheduledTime: &past},
		},
	}
	contacts := &fakeContactRepo{
		recipients: []domain.Contact{testContact(10, "+15550000001")},
	}

	svc := newTestCampaignService(campaigns, contacts, &fakeMessageRepo{}, nil, &fakeGateway{}, &fakeAnalytics{}, nil)

	summaries, err := svc.DispatchDue(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("DispatchDue returned error: %v", err)
	}

	if len(summaries) != 1 {
		t.Fatalf("expected 1 dispatched campaign, got %d", len(summaries))
	}
	if summaries[0].CampaignID != 1 {
		t.Errorf("expected campaign 1 dispatched, got %d", summaries[0].CampaignID)
	}
}
