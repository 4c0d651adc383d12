package service

import (
	"context"
	"testing"
	"time"

	"github.com/lightsms/lightsms/environments"
	"github.com/lightsms/lightsms/internal/domain"
)

//
// Test fakes – only for this file.
//

type fakeUsageCounter struct {
	count int64

	lastFrom  time.Time
	lastUntil time.Time
	calls     int
}

func (r *fakeUsageCounter) CountForUserBetween(ctx context.Context, userID int64, from, until time.Time) (int64, error) {
	r.calls++
	r.lastFrom = from
	r.lastUntil = until
	return r.count, nil
}

type fakeUserGetter struct {
	user *domain.User
}

func (r *fakeUserGetter) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if r.user == nil {
		return nil, domain.ErrNotFound
	}
	return r.user, nil
}

type fakeQuotaCache struct {
	views map[int64]*domain.QuotaView

	cacheCalls      int
	invalidateCalls int
}

func (c *fakeQuotaCache) CacheQuota(ctx context.Context, userID int64, view *domain.QuotaView) error {
	if c.views == nil {
		c.views = make(map[int64]*domain.QuotaView)
	}
	c.views[userID] = view
	c.cacheCalls++
	return nil
}

func (c *fakeQuotaCache) GetCachedQuota(ctx context.Context, userID int64) (*domain.QuotaView, error) {
	return c.views[userID], nil
}

func (c *fakeQuotaCache) InvalidateQuota(ctx context.Context, userID int64) error {
	delete(c.views, userID)
	c.invalidateCalls++
	return nil
}

func testQuotaConfig() environments.QuotaConfig {
	return environments.QuotaConfig{
		BasicLimit:      1000,
		ProLimit:        2000,
		EnterpriseLimit: 4000,
		CacheTTL:        30 * time.Second,
	}
}

//
// Tests
//

func TestUsage_NoMessagesSent(t *testing.T) {
	ctx := context.Background()

	counter := &fakeUsageCounter{count: 0}
	svc := NewQuotaService(counter, &fakeUserGetter{}, nil, testQuotaConfig())

	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

	view, err := svc.Usage(ctx, 7, 1000, now)
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}

	if view.Used != 0 {
		t.Errorf("expected Used=0, got %d", view.Used)
	}
	if view.Remaining != 1000 {
		t.Errorf("expected Remaining=1000, got %d", view.Remaining)
	}
	if view.Total != 1000 {
		t.Errorf("expected Total=1000, got %d", view.Total)
	}

	wantFrom := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	if !counter.lastFrom.Equal(wantFrom) {
		t.Errorf("expected count window from %v, got %v", wantFrom, counter.lastFrom)
	}
	if !counter.lastUntil.Equal(now) {
		t.Errorf("expected count window until %v, got %v", now, counter.lastUntil)
	}
}

func TestUsage_RemainingClampsAtZero(t *testing.T) {
	ctx := context.Background()

	counter := &fakeUsageCounter{count: 1500}
	svc := NewQuotaService(counter, &fakeUserGetter{}, nil, testQuotaConfig())

	view, err := svc.Usage(ctx, 7, 1000, time.Now().UTC())
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}

	if view.Remaining != 0 {
		t.Errorf("expected Remaining clamped at 0, got %d", view.Remaining)
	}
	if view.Used != 1500 {
		t.Errorf("expected Used=1500, got %d", view.Used)
	}
}

func TestUsage_DecemberRollsIntoNextYear(t *testing.T) {
	ctx := context.Background()

	counter := &fakeUsageCounter{}
	svc := NewQuotaService(counter, &fakeUserGetter{}, nil, testQuotaConfig())

	now := time.Date(2024, time.December, 15, 10, 30, 0, 0, time.UTC)

	view, err := svc.Usage(ctx, 7, 1000, now)
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}

	want := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !view.ResetDate.Equal(want) {
		t.Errorf("expected reset date %v, got %v", want, view.ResetDate)
	}
}

func TestUsage_MidYearResetDate(t *testing.T) {
	ctx := context.Background()

	counter := &fakeUsageCounter{}
	svc := NewQuotaService(counter, &fakeUserGetter{}, nil, testQuotaConfig())

	now := time.Date(2025, time.March, 31, 23, 59, 0, 0, time.UTC)

	view, err := svc.Usage(ctx, 7, 1000, now)
	if err != nil {
		t.Fatalf("Usage returned error: %v", err)
	}

	want := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	if !view.ResetDate.Equal(want) {
		t.Errorf("expected reset date %v, got %v", want, view.ResetDate)
	}
}

func TestPlanLimit_Mapping(t *testing.T) {
	svc := NewQuotaService(&fakeUsageCounter{}, &fakeUserGetter{}, nil, testQuotaConfig())

	cases := []struct {
		plan string
		want int64
	}{
		{"basic", 1000},
		{"pro", 2000},
		{"enterprise", 4000},
		{"unknown-plan", 1000},
		{"", 1000},
	}

	for _, tc := range cases {
		if got := svc.PlanLimit(tc.plan); got != tc.want {
			t.Errorf("PlanLimit(%q) = %d, want %d", tc.plan, got, tc.want)
		}
	}
}

func TestCheckQuota_CacheMissThenHit(t *testing.T) {
	ctx := context.Background()

	counter := &fakeUsageCounter{count: 42}
	users := &fakeUserGetter{user: &domain.User{ID: 7, Plan: "pro"}}
	cache := &fakeQuotaCache{}

	svc := NewQuotaService(counter, users, cache, testQuotaConfig())

	view, err := svc.CheckQuota(ctx, 7)
	if err != nil {
		t.Fatalf("CheckQuota returned error: %v", err)
	}

	if view.Total != 2000 {
		t.Errorf("expected pro limit 2000, got %d", view.Total)
	}
	if view.Used != 42 {
		t.Errorf("expected Used=42, got %d", view.Used)
	}
	if cache.cacheCalls != 1 {
		t.Errorf("expected snapshot to be cached once, got %d", cache.cacheCalls)
	}

	// Second call should come from the cache without recounting.
	if _, err := svc.CheckQuota(ctx, 7); err != nil {
		t.Fatalf("CheckQuota returned error: %v", err)
	}
	if counter.calls != 1 {
		t.Errorf("expected 1 usage count, got %d", counter.calls)
	}
}

func TestCheckQuota_UnknownUser(t *testing.T) {
	ctx := context.Background()

	svc := NewQuotaService(&fakeUsageCounter{}, &fakeUserGetter{}, nil, testQuotaConfig())

	if _, err := svc.CheckQuota(ctx, 999); err == nil {
		t.Fatalf("expected error for unknown user")
	}
}
