package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/lightsms/lightsms/internal/domain"
	"github.com/lightsms/lightsms/internal/service"
	"github.com/lightsms/lightsms/pkg/logger"
)

// campaignDispatcher is a minimal internal interface for the
// scheduler. It matches the DispatchDue method of CampaignService and
// lets us unit test the scheduler with a small fake implementation.
type campaignDispatcher interface {
	DispatchDue(ctx context.Context, now time.Time, limit int) ([]domain.DispatchSummary, error)
}

// Scheduler periodically dispatches campaigns whose scheduled time has
// passed. Manual dispatch stays synchronous; this only drives the
// 'scheduled' status.
type Scheduler struct {
	campaignService campaignDispatcher
	interval        time.Duration
	batchSize       int

	// Internal state
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt           time.Time
	campaignsDispatched int64
	messagesSent        int64
	runsCount           int64
}

func NewScheduler(campaignService *service.CampaignService, interval time.Duration, batchSize int) *Scheduler {
	return &Scheduler{
		campaignService: campaignService,
		interval:        interval,
		batchSize:       batchSize,
		running:         false,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is already running")
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.mu.Unlock()

	logger.Infof("Starting campaign scheduler with interval: %v", s.interval)

	go s.run(ctx)

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneChan)

	s.dispatchDueCampaigns(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Infof("Scheduler running. Next execution in %v", s.interval)

	for {
		select {
		case <-ticker.C:
			s.dispatchDueCampaigns(ctx)
			logger.Debugf("Next execution in %v", s.interval)

		case <-s.stopChan:
			logger.Warnf("Scheduler received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Scheduler context cancelled")
			return
		}
	}
}

func (s *Scheduler) dispatchDueCampaigns(ctx context.Context) {
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runsCount++
	runNumber := s.runsCount
	batchSize := s.batchSize
	s.mu.Unlock()

	logger.Debugf("[Run #%d] Checking for due campaigns at %s", runNumber, s.lastRunAt.Format(time.RFC3339))

	summaries, err := s.campaignService.DispatchDue(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		logger.Errorf("[Run #%d] Error dispatching due campaigns: %v", runNumber, err)
		return
	}

	if len(summaries) == 0 {
		logger.Debugf("[Run #%d] No due campaigns", runNumber)
		return
	}

	var sent int64
	for _, summary := range summaries {
		sent += summary.Sent
	}

	s.mu.Lock()
	s.campaignsDispatched += int64(len(summaries))
	s.messagesSent += sent
	s.mu.Unlock()

	logger.Infof("[Run #%d] Dispatched %d campaigns, %d messages sent", runNumber, len(summaries), sent)
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	// Send stop signal
	close(stopChan)

	// Wait for goroutine to finish
	<-doneChan

	logger.Infof("Scheduler stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Running:             s.running,
		LastRunAt:           s.lastRunAt,
		CampaignsDispatched: s.campaignsDispatched,
		MessagesSent:        s.messagesSent,
		RunsCount:           s.runsCount,
		Interval:            s.interval,
	}

	if s.running && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

type Status struct {
	Running             bool          `json:"running"`
	LastRunAt           time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt           time.Time     `json:"nextRunAt,omitempty"`
	CampaignsDispatched int64         `json:"campaignsDispatched"`
	MessagesSent        int64         `json:"messagesSent"`
	RunsCount           int64         `json:"runsCount"`
	Interval            time.Duration `json:"interval"`
}
