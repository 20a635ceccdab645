package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/infra/cache"
	"github.com/havenlabs/haven-core-go/internal/infra/observability"
	"github.com/havenlabs/haven-core-go/internal/port"
	"github.com/havenlabs/haven-core-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Mocks ---

// mockEventStore filters in-memory fixtures by the requested range, so the
// service's window math is what actually gets tested.
type mockEventStore struct {
	users    []domain.User
	payments []domain.Payment
	logins   []domain.LoginEvent
	moods    []domain.MoodCheck
	nps      []domain.NpsResponse
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func (m *mockEventStore) UsersCreatedInRange(_ context.Context, start, end time.Time) ([]domain.User, error) {
	var out []domain.User
	for _, u := range m.users {
		if inRange(u.CreatedAt, start, end) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockEventStore) UsersCreatedBefore(_ context.Context, cutoff time.Time) ([]domain.User, error) {
	var out []domain.User
	for _, u := range m.users {
		if !u.CreatedAt.After(cutoff) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockEventStore) PaymentsInRange(_ context.Context, start, end time.Time) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range m.payments {
		if inRange(p.PaymentDate, start, end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockEventStore) AllPayments(_ context.Context) ([]domain.Payment, error) {
	return m.payments, nil
}

func (m *mockEventStore) LoginEventsInRange(_ context.Context, start, end time.Time) ([]domain.LoginEvent, error) {
	var out []domain.LoginEvent
	for _, l := range m.logins {
		if inRange(l.CreatedAt, start, end) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockEventStore) MoodChecksInRange(_ context.Context, start, end time.Time) ([]domain.MoodCheck, error) {
	var out []domain.MoodCheck
	for _, c := range m.moods {
		if inRange(c.Date, start, end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockEventStore) NpsResponsesInRange(_ context.Context, start, end time.Time) ([]domain.NpsResponse, error) {
	var out []domain.NpsResponse
	for _, r := range m.nps {
		if inRange(r.CreatedAt, start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

var _ port.EventStore = (*mockEventStore)(nil)

type mockEbitdaSource struct {
	snapshots map[string]*domain.EbitdaSnapshot
}

func (m *mockEbitdaSource) GetEbitdaSnapshot(_ context.Context, weekStart string) (*domain.EbitdaSnapshot, error) {
	return m.snapshots[weekStart], nil
}

func newAnalyticsService(events port.EventStore, ebitda port.EbitdaSource) *service.AnalyticsService {
	return service.NewAnalyticsService(events, ebitda, nil, 0, observability.NewMetrics(), zap.NewNop())
}

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func monthly(userID string, date time.Time, amount string) domain.Payment {
	return domain.Payment{
		ID:          "pay-" + userID + date.Format("0102"),
		UserID:      userID,
		Amount:      decimal.RequireFromString(amount),
		PaymentDate: date,
		Period:      domain.BillingMonthly,
		Monthly:     &domain.MonthlyBilling{BillingMonth: date.Format("2006-01")},
	}
}

// --- Tests ---

func TestPctChange(t *testing.T) {
	cases := []struct {
		name       string
		curr, prev float64
		want       float64
	}{
		{"both zero", 0, 0, 0},
		{"from zero to positive", 5, 0, 100},
		{"to zero", 0, 5, -100},
		{"growth", 150, 100, 50},
		{"decline", 50, 100, -50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := service.PctChange(tc.curr, tc.prev); got != tc.want {
				t.Errorf("PctChange(%v, %v) = %v, want %v", tc.curr, tc.prev, got, tc.want)
			}
		})
	}
}

func TestWeeklyPerformanceReview_Windows(t *testing.T) {
	// Reference Wednesday 2024-06-12; current week Sat 2024-06-08 .. Fri
	// 2024-06-14, previous week 2024-06-01 .. 2024-06-07.
	ref := day(2024, time.June, 12, 10)

	events := &mockEventStore{
		users: []domain.User{
			{ID: "u-old", CreatedAt: day(2024, time.May, 1, 9), IsVerified: true, IsApproved: true},
			{ID: "u-prev", CreatedAt: day(2024, time.June, 3, 9), IsVerified: true},
			{ID: "u-curr", CreatedAt: day(2024, time.June, 10, 9)},
			{ID: "deleted_u-gone", CreatedAt: day(2024, time.June, 10, 12)},
		},
		payments: []domain.Payment{
			monthly("u-old", day(2024, time.June, 9, 8), "10.50"),
			monthly("u-prev", day(2024, time.June, 9, 9), "4.50"),
			monthly("u-old", day(2024, time.June, 3, 8), "10.00"),
		},
		logins: []domain.LoginEvent{
			{UserID: "u-old", CreatedAt: day(2024, time.June, 9, 8)},
			{UserID: "u-old", CreatedAt: day(2024, time.June, 9, 20)}, // same day, same user
			{UserID: "u-prev", CreatedAt: day(2024, time.June, 9, 9)},
			{UserID: "u-curr", CreatedAt: day(2024, time.June, 12, 9)},
		},
		moods: []domain.MoodCheck{
			{UserID: "u-old", MoodValue: 4, Date: day(2024, time.June, 10, 9)},
			{UserID: "u-prev", MoodValue: 3, Date: day(2024, time.June, 11, 9)},
		},
	}

	report, err := newAnalyticsService(events, nil).WeeklyPerformanceReview(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	curr := report.CurrentWeek
	if curr.WeekStart != "2024-06-08" || curr.WeekEnd != "2024-06-14" {
		t.Fatalf("unexpected window: %s..%s", curr.WeekStart, curr.WeekEnd)
	}
	if report.PreviousWeek.WeekStart != "2024-06-01" {
		t.Fatalf("unexpected previous window start: %s", report.PreviousWeek.WeekStart)
	}

	// Soft-deleted users never count.
	if curr.NewUsers != 1 {
		t.Errorf("expected 1 new user, got %d", curr.NewUsers)
	}
	if curr.TotalUsers != 3 {
		t.Errorf("expected 3 total users as of week end, got %d", curr.TotalUsers)
	}
	if curr.VerifiedUsers != 2 || curr.ApprovedUsers != 1 {
		t.Errorf("unexpected verified/approved: %d/%d", curr.VerifiedUsers, curr.ApprovedUsers)
	}

	if curr.Revenue != 15.0 {
		t.Errorf("expected week revenue 15.00, got %v", curr.Revenue)
	}
	if len(curr.DailyRevenue) != 7 {
		t.Fatalf("expected 7 daily revenue buckets, got %d", len(curr.DailyRevenue))
	}
	if curr.DailyRevenue[1].Date != "2024-06-09" || curr.DailyRevenue[1].Amount != 15.0 {
		t.Errorf("unexpected daily revenue: %+v", curr.DailyRevenue[1])
	}

	// Two distinct users on the 9th despite three login rows.
	if len(curr.DailyActive) != 7 {
		t.Fatalf("expected 7 daily active buckets, got %d", len(curr.DailyActive))
	}
	if curr.DailyActive[1].Count != 2 {
		t.Errorf("expected 2 distinct active users on 2024-06-09, got %d", curr.DailyActive[1].Count)
	}
	if curr.DailyActive[0].Count != 0 {
		t.Errorf("expected empty Saturday, got %d", curr.DailyActive[0].Count)
	}

	if curr.MoodIndex != 3.5 || curr.MoodCheckCount != 2 {
		t.Errorf("unexpected mood: %v (%d checks)", curr.MoodIndex, curr.MoodCheckCount)
	}

	// Previous week had one new user and revenue 10.00.
	if report.PreviousWeek.NewUsers != 1 || report.PreviousWeek.Revenue != 10.0 {
		t.Errorf("unexpected previous week: %+v", report.PreviousWeek)
	}
	if report.Changes.NewUsersPct != 0 {
		t.Errorf("expected 0%% new-user change, got %v", report.Changes.NewUsersPct)
	}
	if report.Changes.RevenuePct != 50 {
		t.Errorf("expected 50%% revenue change, got %v", report.Changes.RevenuePct)
	}
}

func TestWeeklyPerformanceReview_NpsInversion(t *testing.T) {
	ref := day(2024, time.June, 12, 10)

	// Raw scores 10, 10, 1 → effective 0, 0, 9: one promoter, two
	// detractors, NPS = round(33.3 - 66.7) = -33.
	events := &mockEventStore{
		nps: []domain.NpsResponse{
			{UserID: "u-1", Score: 10, CreatedAt: day(2024, time.June, 9, 9)},
			{UserID: "u-2", Score: 10, CreatedAt: day(2024, time.June, 10, 9)},
			{UserID: "u-3", Score: 1, CreatedAt: day(2024, time.June, 11, 9)},
		},
	}

	report, err := newAnalyticsService(events, nil).WeeklyPerformanceReview(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.CurrentWeek.Nps != -33 {
		t.Errorf("expected NPS -33, got %d", report.CurrentWeek.Nps)
	}
	if report.CurrentWeek.NpsResponseCount != 3 {
		t.Errorf("expected 3 responses, got %d", report.CurrentWeek.NpsResponseCount)
	}

	// Previous week empty: change equals the current value outright.
	if report.Changes.Nps != -33 {
		t.Errorf("expected NPS change -33 with empty previous week, got %v", report.Changes.Nps)
	}
}

func TestWeeklyPerformanceReview_MoodChangeRules(t *testing.T) {
	ref := day(2024, time.June, 12, 10)

	events := &mockEventStore{
		moods: []domain.MoodCheck{
			{UserID: "u-1", MoodValue: 5, Date: day(2024, time.June, 9, 9)},  // current
			{UserID: "u-2", MoodValue: 2, Date: day(2024, time.June, 3, 9)}, // previous
		},
	}

	report, err := newAnalyticsService(events, nil).WeeklyPerformanceReview(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// Plain difference, not a percentage.
	if report.Changes.Mood != 3 {
		t.Errorf("expected mood change +3, got %v", report.Changes.Mood)
	}

	// Empty current week pins the change to 0 even with previous data.
	empty, err := newAnalyticsService(&mockEventStore{moods: events.moods[1:]}, nil).
		WeeklyPerformanceReview(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if empty.Changes.Mood != 0 {
		t.Errorf("expected mood change 0 with empty current week, got %v", empty.Changes.Mood)
	}
}

func TestWeeklyPerformanceReview_BusinessMetrics(t *testing.T) {
	ref := day(2024, time.June, 12, 10)

	yearly := domain.Payment{
		ID:          "pay-yearly",
		UserID:      "u-year",
		Amount:      decimal.RequireFromString("120.00"),
		PaymentDate: day(2024, time.June, 2, 9),
		Period:      domain.BillingYearly,
		Yearly:      &domain.YearlyBilling{StartMonth: "2024-06", EndMonth: "2025-05"},
	}

	events := &mockEventStore{
		payments: []domain.Payment{
			monthly("u-keep", day(2024, time.May, 10, 9), "10.00"),
			monthly("u-gone", day(2024, time.May, 11, 9), "10.00"),
			monthly("u-keep", day(2024, time.June, 10, 9), "10.00"),
			yearly,
		},
		logins: []domain.LoginEvent{
			{UserID: "u-keep", CreatedAt: day(2024, time.June, 11, 9)},
			{UserID: "u-free", CreatedAt: day(2024, time.June, 11, 10)},
		},
	}

	report, err := newAnalyticsService(events, nil).WeeklyPerformanceReview(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b := report.Business

	if b.Month != "2024-06" {
		t.Errorf("expected month 2024-06, got %s", b.Month)
	}
	if b.MRR != 10.0 {
		t.Errorf("expected MRR 10.00, got %v", b.MRR)
	}
	// Yearly amounts count in full, not amortized.
	if b.ARR != 120.0 {
		t.Errorf("expected ARR 120.00, got %v", b.ARR)
	}
	if b.MAU != 2 {
		t.Errorf("expected MAU 2, got %d", b.MAU)
	}

	// May actives: u-keep, u-gone. u-keep logged in during June; u-gone
	// vanished. Churn 50%, retention 50%.
	if b.ChurnRatePct != 50 {
		t.Errorf("expected churn 50%%, got %v", b.ChurnRatePct)
	}
	if b.RetentionRatePct != 50 {
		t.Errorf("expected retention 50%%, got %v", b.RetentionRatePct)
	}

	// Lifetime 150.00 over 3 distinct payers.
	if b.CLV != 50.0 {
		t.Errorf("expected CLV 50.00, got %v", b.CLV)
	}
}

func TestWeeklyPerformanceReview_DeletedUsersExcludedFromActivity(t *testing.T) {
	ref := day(2024, time.June, 12, 10)

	events := &mockEventStore{
		logins: []domain.LoginEvent{
			{UserID: "deleted_u-gone", CreatedAt: day(2024, time.June, 9, 9)},
			{UserID: "u-live", CreatedAt: day(2024, time.June, 9, 10)},
		},
		payments: []domain.Payment{
			monthly("deleted_u-gone", day(2024, time.May, 10, 9), "10.00"),
		},
	}

	report, err := newAnalyticsService(events, nil).WeeklyPerformanceReview(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Only the live user's login counts toward the 2024-06-09 bucket.
	if report.CurrentWeek.DailyActive[1].Count != 1 {
		t.Errorf("expected 1 active user on 2024-06-09, got %d", report.CurrentWeek.DailyActive[1].Count)
	}

	b := report.Business
	if b.MAU != 1 {
		t.Errorf("expected MAU 1, got %d", b.MAU)
	}
	// The deleted user's May payment must not seed the churn base or CLV.
	if b.ChurnRatePct != 0 || b.RetentionRatePct != 0 {
		t.Errorf("expected empty churn base, got churn %v / retention %v", b.ChurnRatePct, b.RetentionRatePct)
	}
	if b.CLV != 0 {
		t.Errorf("expected CLV 0 with no live payers, got %v", b.CLV)
	}
}

func TestWeeklyPerformanceReview_CacheSplitsByMonth(t *testing.T) {
	// 2024-06-30 and 2024-07-02 share the week of Saturday 2024-06-29 but
	// sit in different calendar months, so each gets its own cache entry.
	events := &mockEventStore{
		payments: []domain.Payment{
			monthly("u-1", day(2024, time.July, 1, 9), "25.00"),
		},
	}
	svc := service.NewAnalyticsService(events, nil,
		cache.NewReportCache(time.Minute), time.Minute,
		observability.NewMetrics(), zap.NewNop())

	june, err := svc.WeeklyPerformanceReview(context.Background(), day(2024, time.June, 30, 10))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if june.CurrentWeek.WeekStart != "2024-06-29" {
		t.Fatalf("unexpected week start: %s", june.CurrentWeek.WeekStart)
	}
	if june.Business.Month != "2024-06" || june.Business.MRR != 0 {
		t.Errorf("unexpected June metrics: month %s, MRR %v", june.Business.Month, june.Business.MRR)
	}

	july, err := svc.WeeklyPerformanceReview(context.Background(), day(2024, time.July, 2, 10))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if july.CurrentWeek.WeekStart != "2024-06-29" {
		t.Fatalf("unexpected week start: %s", july.CurrentWeek.WeekStart)
	}
	if july.Business.Month != "2024-07" {
		t.Errorf("expected month 2024-07, got %s", july.Business.Month)
	}
	if july.Business.MRR != 25.0 {
		t.Errorf("expected July MRR 25.00, got %v", july.Business.MRR)
	}
}

func TestWeeklyPerformanceReview_YearlyCoverageRetention(t *testing.T) {
	ref := day(2024, time.June, 12, 10)

	// u-march bought a year in March that still covers June; u-june bought
	// inside June itself; u-gone paid monthly in May and vanished.
	marchYearly := domain.Payment{
		ID:          "pay-march",
		UserID:      "u-march",
		Amount:      decimal.RequireFromString("120.00"),
		PaymentDate: day(2024, time.March, 5, 9),
		Period:      domain.BillingYearly,
		Yearly:      &domain.YearlyBilling{StartMonth: "2024-03", EndMonth: "2025-02"},
	}
	juneYearly := domain.Payment{
		ID:          "pay-june",
		UserID:      "u-june",
		Amount:      decimal.RequireFromString("120.00"),
		PaymentDate: day(2024, time.June, 2, 9),
		Period:      domain.BillingYearly,
		Yearly:      &domain.YearlyBilling{StartMonth: "2024-06", EndMonth: "2025-05"},
	}
	events := &mockEventStore{
		payments: []domain.Payment{
			marchYearly,
			juneYearly,
			monthly("u-gone", day(2024, time.May, 11, 9), "10.00"),
		},
	}

	report, err := newAnalyticsService(events, nil).WeeklyPerformanceReview(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b := report.Business

	// Churn base is u-march (retained by coverage) and u-gone (churned);
	// u-june's purchase is current-month activity, not previous activity.
	if b.ChurnRatePct != 50 {
		t.Errorf("expected churn 50%%, got %v", b.ChurnRatePct)
	}
	if b.RetentionRatePct != 50 {
		t.Errorf("expected retention 50%%, got %v", b.RetentionRatePct)
	}
}

func TestWeeklyPerformanceReview_EbitdaAnnotation(t *testing.T) {
	ref := day(2024, time.June, 12, 10)
	ebitda := &mockEbitdaSource{snapshots: map[string]*domain.EbitdaSnapshot{
		"2024-06-08": {WeekStart: "2024-06-08", IsDefaultAlive: true},
		// No snapshot for the previous week.
	}}

	report, err := newAnalyticsService(&mockEventStore{}, ebitda).WeeklyPerformanceReview(context.Background(), ref)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.CurrentWeek.IsDefaultAlive == nil || !*report.CurrentWeek.IsDefaultAlive {
		t.Errorf("expected current week default-alive true, got %v", report.CurrentWeek.IsDefaultAlive)
	}
	if report.PreviousWeek.IsDefaultAlive != nil {
		t.Errorf("expected previous week annotation absent, got %v", *report.PreviousWeek.IsDefaultAlive)
	}
}
