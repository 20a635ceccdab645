// Package scheduler runs the recurring background jobs: the weekly
// matching pass and the weekly-review cache warm-up.
package scheduler

import (
	"context"
	"time"

	"github.com/havenlabs/haven-core-go/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Manager owns the cron engine and the job wiring.
type Manager struct {
	engine    *cron.Cron
	matching  *service.MatchingService
	analytics *service.AnalyticsService
	logger    *zap.Logger

	matchSpec  string
	reviewSpec string
	jobTimeout time.Duration
}

// New creates a Manager. matchSpec and reviewSpec are standard cron
// expressions; empty specs disable the respective job.
func New(matching *service.MatchingService, analytics *service.AnalyticsService, matchSpec, reviewSpec string, logger *zap.Logger) *Manager {
	return &Manager{
		engine:     cron.New(),
		matching:   matching,
		analytics:  analytics,
		logger:     logger,
		matchSpec:  matchSpec,
		reviewSpec: reviewSpec,
		jobTimeout: 5 * time.Minute,
	}
}

// RegisterJobs adds the enabled jobs to the engine.
func (m *Manager) RegisterJobs() error {
	if m.matchSpec != "" {
		if _, err := m.engine.AddFunc(m.matchSpec, m.runMatchingPass); err != nil {
			return err
		}
	}
	if m.reviewSpec != "" {
		if _, err := m.engine.AddFunc(m.reviewSpec, m.warmWeeklyReview); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) Start() {
	m.logger.Info("scheduler started",
		zap.String("match_spec", m.matchSpec),
		zap.String("review_spec", m.reviewSpec),
	)
	m.engine.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (m *Manager) Stop() {
	ctx := m.engine.Stop()
	<-ctx.Done()
	m.logger.Info("scheduler stopped")
}

func (m *Manager) runMatchingPass() {
	ctx, cancel := context.WithTimeout(context.Background(), m.jobTimeout)
	defer cancel()

	result, err := m.matching.RunMatchingPass(ctx)
	if err != nil {
		m.logger.Error("scheduled matching pass failed", zap.Error(err))
		return
	}
	m.logger.Info("scheduled matching pass done",
		zap.Int("candidates", result.Candidates),
		zap.Int("matched_pairs", result.MatchedPairs),
	)
}

// warmWeeklyReview precomputes the current week's review so the first
// dashboard hit after the boundary is served from cache.
func (m *Manager) warmWeeklyReview() {
	ctx, cancel := context.WithTimeout(context.Background(), m.jobTimeout)
	defer cancel()

	if _, err := m.analytics.WeeklyPerformanceReview(ctx, time.Now()); err != nil {
		m.logger.Error("weekly review warm-up failed", zap.Error(err))
	}
}
