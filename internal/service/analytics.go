package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/infra/observability"
	"github.com/havenlabs/haven-core-go/internal/port"
	"github.com/havenlabs/haven-core-go/internal/timeutil"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var analyticsTracer = otel.Tracer("analytics")

// AnalyticsService computes the weekly performance review from raw event
// tables. It only reads; every figure is derived on demand.
type AnalyticsService struct {
	events   port.EventStore
	ebitda   port.EbitdaSource // nil when no EBITDA backend is configured
	cache    port.ReportCache  // nil disables report caching
	cacheTTL time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalyticsService creates an AnalyticsService. ebitda and cache may be
// nil; the report then simply omits the default-alive annotation and is
// recomputed on every call.
func NewAnalyticsService(events port.EventStore, ebitda port.EbitdaSource, cache port.ReportCache, cacheTTL time.Duration, metrics *observability.Metrics, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		events:   events,
		ebitda:   ebitda,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// PctChange is the percent-change convention used by every week-over-week
// count comparison. A zero previous value yields 100 when the current value
// is positive and 0 otherwise; there is deliberately no -100 counterpart.
func PctChange(curr, prev float64) float64 {
	if prev == 0 {
		if curr > 0 {
			return 100
		}
		return 0
	}
	return (curr - prev) / prev * 100
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// isDeletedUserID reports whether an event row belongs to a soft-deleted
// user. Deleted users stay out of every user-derived count, including the
// activity sets built from login and payment rows.
func isDeletedUserID(id string) bool {
	return strings.HasPrefix(id, domain.DeletedUserPrefix)
}

// WeeklyPerformanceReview builds the two-week comparative snapshot for the
// week containing referenceDate plus the business metrics for its calendar
// month. Window math uses referenceDate's location throughout.
func (s *AnalyticsService) WeeklyPerformanceReview(ctx context.Context, referenceDate time.Time) (*domain.WeeklyReviewReport, error) {
	ctx, span := analyticsTracer.Start(ctx, "AnalyticsService.WeeklyPerformanceReview")
	defer span.End()
	defer s.observeReport("weekly_review", time.Now())

	currStart := timeutil.WeekStart(referenceDate)
	prevStart := timeutil.WeekStart(currStart.AddDate(0, 0, -7))
	span.SetAttributes(attribute.String("review.week_start", timeutil.FormatISODate(currStart)))

	// The report mixes week-scoped and month-scoped figures, so the key
	// carries both dimensions; two dates in one week but different months
	// must not share an entry.
	cacheKey := "weekly-review:" + timeutil.FormatISODate(currStart) + ":" + timeutil.FormatMonth(referenceDate)
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, cacheKey); ok {
			var cached domain.WeeklyReviewReport
			if err := json.Unmarshal(raw, &cached); err == nil {
				s.metrics.IncrCacheHit("weekly_review")
				return &cached, nil
			}
			s.logger.Warn("weekly review: discarding undecodable cache entry", zap.String("key", cacheKey))
		}
		s.metrics.IncrCacheMiss("weekly_review")
	}

	var (
		curr, prev *domain.WeekSnapshot
		business   *domain.BusinessMetrics
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		curr, err = s.weekSnapshot(gCtx, currStart)
		return err
	})
	g.Go(func() error {
		var err error
		prev, err = s.weekSnapshot(gCtx, prevStart)
		return err
	})
	g.Go(func() error {
		var err error
		business, err = s.businessMetrics(gCtx, referenceDate)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &domain.WeeklyReviewReport{
		GeneratedAt:  s.now(),
		CurrentWeek:  *curr,
		PreviousWeek: *prev,
		Changes:      compareWeeks(curr, prev),
		Business:     *business,
	}

	if s.cache != nil {
		if raw, err := json.Marshal(report); err == nil {
			s.cache.Set(ctx, cacheKey, raw, s.cacheTTL)
		}
	}
	return report, nil
}

// weekSnapshot aggregates one Saturday-to-Friday window.
func (s *AnalyticsService) weekSnapshot(ctx context.Context, weekStart time.Time) (*domain.WeekSnapshot, error) {
	weekEnd := timeutil.WeekEnd(weekStart)
	loc := weekStart.Location()

	var (
		newUsers  []domain.User
		allBefore []domain.User
		payments  []domain.Payment
		logins    []domain.LoginEvent
		moods     []domain.MoodCheck
		nps       []domain.NpsResponse
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		newUsers, err = s.events.UsersCreatedInRange(gCtx, weekStart, weekEnd)
		return err
	})
	g.Go(func() error {
		var err error
		allBefore, err = s.events.UsersCreatedBefore(gCtx, weekEnd)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.events.PaymentsInRange(gCtx, weekStart, weekEnd)
		return err
	})
	g.Go(func() error {
		var err error
		logins, err = s.events.LoginEventsInRange(gCtx, weekStart, weekEnd)
		return err
	})
	g.Go(func() error {
		var err error
		moods, err = s.events.MoodChecksInRange(gCtx, weekStart, weekEnd)
		return err
	})
	g.Go(func() error {
		var err error
		nps, err = s.events.NpsResponsesInRange(gCtx, weekStart, weekEnd)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &domain.WeekSnapshot{
		WeekStart: timeutil.FormatISODate(weekStart),
		WeekEnd:   timeutil.FormatISODate(weekEnd),
	}

	for _, u := range newUsers {
		if !u.IsDeleted() {
			snap.NewUsers++
		}
	}
	for _, u := range allBefore {
		if u.IsDeleted() {
			continue
		}
		snap.TotalUsers++
		if u.IsVerified {
			snap.VerifiedUsers++
		}
		if u.IsApproved {
			snap.ApprovedUsers++
		}
	}

	// Per-day buckets keyed by local ISO date. The sums stay decimal until
	// the very end; only the JSON shape is float.
	activeByDay := make(map[string]map[string]struct{}, 7)
	revenueByDay := make(map[string]decimal.Decimal, 7)

	weekRevenue := decimal.Zero
	for _, p := range payments {
		day := timeutil.FormatISODate(p.PaymentDate.In(loc))
		revenueByDay[day] = revenueByDay[day].Add(p.Amount)
		weekRevenue = weekRevenue.Add(p.Amount)
	}
	snap.Revenue = weekRevenue.Round(2).InexactFloat64()

	for _, l := range logins {
		if isDeletedUserID(l.UserID) {
			continue
		}
		day := timeutil.FormatISODate(l.CreatedAt.In(loc))
		if activeByDay[day] == nil {
			activeByDay[day] = make(map[string]struct{})
		}
		activeByDay[day][l.UserID] = struct{}{}
	}

	for day := range timeutil.DaysInWeek(weekStart) {
		snap.DailyActive = append(snap.DailyActive, domain.DayCount{
			Date:  day.ISO,
			Count: len(activeByDay[day.ISO]),
		})
		snap.DailyRevenue = append(snap.DailyRevenue, domain.DayAmount{
			Date:   day.ISO,
			Amount: revenueByDay[day.ISO].Round(2).InexactFloat64(),
		})
	}

	snap.Nps, snap.NpsResponseCount = computeNps(nps)
	snap.MoodIndex, snap.MoodCheckCount = computeMoodIndex(moods)

	if s.ebitda != nil {
		ebitda, err := s.ebitda.GetEbitdaSnapshot(ctx, snap.WeekStart)
		switch {
		case err != nil:
			// The annotation is best-effort; the review is still valid
			// without it.
			s.metrics.IncrExternalError("ebitda")
			s.logger.Warn("weekly review: ebitda lookup failed",
				zap.String("week_start", snap.WeekStart),
				zap.Error(err),
			)
		case ebitda != nil:
			alive := ebitda.IsDefaultAlive
			snap.IsDefaultAlive = &alive
		}
	}

	return snap, nil
}

// computeNps buckets inverted scores. The survey question is framed
// negatively, so effective = 10 - raw before the usual promoter/detractor
// cut. Returns 0 for an empty window.
func computeNps(responses []domain.NpsResponse) (nps, count int) {
	if len(responses) == 0 {
		return 0, 0
	}
	var promoters, detractors int
	for _, r := range responses {
		effective := 10 - r.Score
		switch {
		case effective >= 9:
			promoters++
		case effective <= 6:
			detractors++
		}
	}
	total := float64(len(responses))
	promoterPct := float64(promoters) / total * 100
	detractorPct := float64(detractors) / total * 100
	return int(math.Round(promoterPct - detractorPct)), len(responses)
}

func computeMoodIndex(checks []domain.MoodCheck) (index float64, count int) {
	if len(checks) == 0 {
		return 0, 0
	}
	sum := 0
	for _, c := range checks {
		sum += c.MoodValue
	}
	return round2(float64(sum) / float64(len(checks))), len(checks)
}

// compareWeeks applies PctChange to the count figures. NPS and mood changes
// are plain differences and only meaningful when both windows have data; an
// empty previous window makes the change equal the current value, and an
// empty current window makes it 0.
func compareWeeks(curr, prev *domain.WeekSnapshot) domain.WeekChanges {
	changes := domain.WeekChanges{
		NewUsersPct:      PctChange(float64(curr.NewUsers), float64(prev.NewUsers)),
		RevenuePct:       PctChange(curr.Revenue, prev.Revenue),
		TotalUsersPct:    PctChange(float64(curr.TotalUsers), float64(prev.TotalUsers)),
		VerifiedUsersPct: PctChange(float64(curr.VerifiedUsers), float64(prev.VerifiedUsers)),
		ApprovedUsersPct: PctChange(float64(curr.ApprovedUsers), float64(prev.ApprovedUsers)),
	}

	switch {
	case curr.NpsResponseCount == 0:
		changes.Nps = 0
	case prev.NpsResponseCount == 0:
		changes.Nps = float64(curr.Nps)
	default:
		changes.Nps = float64(curr.Nps - prev.Nps)
	}

	switch {
	case curr.MoodCheckCount == 0:
		changes.Mood = 0
	case prev.MoodCheckCount == 0:
		changes.Mood = curr.MoodIndex
	default:
		changes.Mood = round2(curr.MoodIndex - prev.MoodIndex)
	}

	return changes
}

// businessMetrics computes the month-scoped figures for the calendar month
// containing referenceDate, plus lifetime CLV.
func (s *AnalyticsService) businessMetrics(ctx context.Context, referenceDate time.Time) (*domain.BusinessMetrics, error) {
	loc := referenceDate.Location()
	monthStart := timeutil.MonthStart(referenceDate)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)
	prevMonthStart := monthStart.AddDate(0, -1, 0)
	prevMonthEnd := monthStart.Add(-time.Nanosecond)

	currentMonth := timeutil.FormatMonth(monthStart)

	var (
		monthPayments []domain.Payment
		prevPayments  []domain.Payment
		allPayments   []domain.Payment
		monthLogins   []domain.LoginEvent
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		monthPayments, err = s.events.PaymentsInRange(gCtx, monthStart, monthEnd)
		return err
	})
	g.Go(func() error {
		var err error
		prevPayments, err = s.events.PaymentsInRange(gCtx, prevMonthStart, prevMonthEnd)
		return err
	})
	g.Go(func() error {
		var err error
		allPayments, err = s.events.AllPayments(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		monthLogins, err = s.events.LoginEventsInRange(gCtx, monthStart, monthEnd)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// MRR sums monthly payments in the month; ARR sums yearly payments at
	// their full amount, not amortized.
	mrr, arr := decimal.Zero, decimal.Zero
	for _, p := range monthPayments {
		switch p.Period {
		case domain.BillingMonthly:
			mrr = mrr.Add(p.Amount)
		case domain.BillingYearly:
			arr = arr.Add(p.Amount)
		}
	}

	mau := make(map[string]struct{})
	for _, l := range monthLogins {
		if isDeletedUserID(l.UserID) {
			continue
		}
		mau[l.UserID] = struct{}{}
	}

	// Previous-month active payers: monthly payers that month plus yearly
	// payers who bought before this month and whose paid year still covers
	// it. Yearly purchases made inside the current month are new activity,
	// not previous activity, so they stay out of this set.
	prevActive := make(map[string]struct{})
	for _, p := range prevPayments {
		if p.Period == domain.BillingMonthly && !isDeletedUserID(p.UserID) {
			prevActive[p.UserID] = struct{}{}
		}
	}
	for _, p := range allPayments {
		if isDeletedUserID(p.UserID) {
			continue
		}
		if p.YearlyActiveAsOf(currentMonth) && p.PaymentDate.In(loc).Before(monthStart) {
			prevActive[p.UserID] = struct{}{}
		}
	}

	// A previous payer is retained when they show up in this month's MAU
	// set or their yearly window still covers the month.
	stillYearly := make(map[string]struct{})
	for _, p := range allPayments {
		if p.YearlyActiveAsOf(currentMonth) && !isDeletedUserID(p.UserID) {
			stillYearly[p.UserID] = struct{}{}
		}
	}

	churned, retained := 0, 0
	for userID := range prevActive {
		_, active := mau[userID]
		_, yearly := stillYearly[userID]
		if active || yearly {
			retained++
		} else {
			churned++
		}
	}

	churnRate, retentionRate := 0.0, 0.0
	if len(prevActive) > 0 {
		churnRate = round2(float64(churned) / float64(len(prevActive)) * 100)
		retentionRate = round2(float64(retained) / float64(len(prevActive)) * 100)
	}

	// CLV: lifetime revenue over distinct paying users.
	lifetime := decimal.Zero
	payers := make(map[string]struct{})
	for _, p := range allPayments {
		if isDeletedUserID(p.UserID) {
			continue
		}
		lifetime = lifetime.Add(p.Amount)
		payers[p.UserID] = struct{}{}
	}
	clv := 0.0
	if len(payers) > 0 {
		clv = lifetime.Div(decimal.NewFromInt(int64(len(payers)))).Round(2).InexactFloat64()
	}

	return &domain.BusinessMetrics{
		Month:            currentMonth,
		MRR:              mrr.Round(2).InexactFloat64(),
		ARR:              arr.Round(2).InexactFloat64(),
		MAU:              len(mau),
		ChurnRatePct:     churnRate,
		CLV:              clv,
		RetentionRatePct: retentionRate,
	}, nil
}

// PlatformSnapshot exposes the operational counters as a JSON-friendly
// summary.
func (s *AnalyticsService) PlatformSnapshot(ctx context.Context) (*domain.PlatformMetrics, error) {
	_, span := analyticsTracer.Start(ctx, "AnalyticsService.PlatformSnapshot")
	defer span.End()

	return s.metrics.PlatformSnapshot()
}

func (s *AnalyticsService) observeReport(name string, start time.Time) {
	s.metrics.RecordReportDuration(name, time.Since(start))
	s.metrics.IncrReportGenerated()
}
