package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lightsms/lightsms/environments"
	"github.com/lightsms/lightsms/internal/domain"
	"github.com/lightsms/lightsms/pkg/logger"
)

type usageCounter interface {
	CountForUserBetween(ctx context.Context, userID int64, from, until time.Time) (int64, error)
}

type userGetter interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type QuotaCache interface {
	CacheQuota(ctx context.Context, userID int64, view *domain.QuotaView) error
	GetCachedQuota(ctx context.Context, userID int64) (*domain.QuotaView, error)
	InvalidateQuota(ctx context.Context, userID int64) error
}

// QuotaService computes a user's message usage for the current
// calendar month against their plan limit. Read-only; safe to call
// arbitrarily often.
type QuotaService struct {
	messages usageCounter
	users    userGetter
	cache    QuotaCache
	config   environments.QuotaConfig
}

func NewQuotaService(messages usageCounter, users userGetter, cache QuotaCache, config environments.QuotaConfig) *QuotaService {
	return &QuotaService{
		messages: messages,
		users:    users,
		cache:    cache,
		config:   config,
	}
}

// CheckQuota resolves the user's plan limit and returns the current
// usage snapshot. A cached snapshot may be served; it can only lag
// behind the true count (stale-low), never overcount.
func (s *QuotaService) CheckQuota(ctx context.Context, userID int64) (*domain.QuotaView, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCachedQuota(ctx, userID); err != nil {
			logger.Warnf("Failed to read quota cache for user %d: %v", userID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	view, err := s.Usage(ctx, userID, s.PlanLimit(user.Plan), time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheQuota(ctx, userID, view); err != nil {
			logger.Warnf("Failed to cache quota for user %d: %v", userID, err)
		}
	}

	return view, nil
}

// Usage counts messages belonging to the user's campaigns created in
// [first of current month, now] and derives remaining and the period
// reset date.
func (s *QuotaService) Usage(ctx context.Context, userID, planLimit int64, now time.Time) (*domain.QuotaView, error) {
	used, err := s.messages.CountForUserBetween(ctx, userID, firstOfMonth(now), now)
	if err != nil {
		return nil, fmt.Errorf("failed to count monthly usage: %w", err)
	}

	remaining := planLimit - used
	if remaining < 0 {
		remaining = 0
	}

	return &domain.QuotaView{
		Total:     planLimit,
		Used:      used,
		Remaining: remaining,
		ResetDate: nextMonthStart(now),
	}, nil
}

// PlanLimit maps a plan name to its monthly message limit. Unknown
// plans fall back to basic.
func (s *QuotaService) PlanLimit(plan string) int64 {
	switch plan {
	case "pro":
		return s.config.ProLimit
	case "enterprise":
		return s.config.EnterpriseLimit
	default:
		return s.config.BasicLimit
	}
}

func firstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// nextMonthStart returns the first day of the following month at
// midnight, rolling December into January of the next year.
func nextMonthStart(now time.Time) time.Time {
	if now.Month() == time.December {
		return time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
}
