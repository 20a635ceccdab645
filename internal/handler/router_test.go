package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/handler"
	"github.com/havenlabs/haven-core-go/internal/infra/memstore"
	"github.com/havenlabs/haven-core-go/internal/infra/observability"
	"github.com/havenlabs/haven-core-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "user-1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func newTestRouter(t *testing.T, store *memstore.Store) http.Handler {
	t.Helper()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	return handler.NewRouter(handler.Deps{
		Matching:    service.NewMatchingService(store, metrics, logger),
		Analytics:   service.NewAnalyticsService(store, nil, nil, 0, metrics, logger),
		Recruitment: service.NewRecruitmentService(store, time.Minute, metrics, logger),
		Metrics:     metrics,
		Logger:      logger,
		JWTSecret:   testSecret,
	})
}

func doRequest(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOperationalEndpoints(t *testing.T) {
	router := newTestRouter(t, memstore.New())

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping"} {
		rec := doRequest(router, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	router := newTestRouter(t, memstore.New())

	rec := doRequest(router, http.MethodGet, "/v1/analytics/weekly-review", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodGet, "/v1/analytics/weekly-review", "not-a-jwt", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with malformed token, got %d", rec.Code)
	}
}

func TestMatchingRunRequiresAdmin(t *testing.T) {
	router := newTestRouter(t, memstore.New())

	rec := doRequest(router, http.MethodPost, "/v1/matching/run", signToken(t, "member"), "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", rec.Code)
	}
}

func TestMatchingRunEndToEnd(t *testing.T) {
	store := memstore.New()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.Profiles = []domain.Profile{
		{ID: "pr-1", UserID: "alice", IsActive: true, GenderPreference: domain.GenderPrefAny, TimezonePreference: domain.TimezonePrefAny, CreatedAt: base},
		{ID: "pr-2", UserID: "bob", IsActive: true, GenderPreference: domain.GenderPrefAny, TimezonePreference: domain.TimezonePrefAny, CreatedAt: base.Add(time.Hour)},
	}
	router := newTestRouter(t, store)
	admin := signToken(t, "admin")

	rec := doRequest(router, http.MethodPost, "/v1/matching/run", admin, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.MatchRunResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.MatchedPairs != 1 {
		t.Errorf("expected 1 pair, got %d", result.MatchedPairs)
	}

	// A second run has nobody left to pair.
	rec = doRequest(router, http.MethodPost, "/v1/matching/run", admin, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Candidates != 0 {
		t.Errorf("expected empty candidate pool on second run, got %d", result.Candidates)
	}

	// The pair shows up in the listing for any authenticated user.
	rec = doRequest(router, http.MethodGet, "/v1/matching/partnerships?status=active", signToken(t, "member"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listing struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decoding listing: %v", err)
	}
	if listing.Count != 1 {
		t.Errorf("expected 1 partnership listed, got %d", listing.Count)
	}
}

func TestCreatePartnershipConflict(t *testing.T) {
	store := memstore.New()
	router := newTestRouter(t, store)
	admin := signToken(t, "admin")

	rec := doRequest(router, http.MethodPost, "/v1/matching/partnerships", admin,
		`{"user1_id":"alice","user2_id":"bob"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// alice is taken now.
	rec = doRequest(router, http.MethodPost, "/v1/matching/partnerships", admin,
		`{"user1_id":"alice","user2_id":"carol"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for double-active, got %d", rec.Code)
	}
}

func TestWeeklyReviewEndpoint(t *testing.T) {
	store := memstore.New()
	store.Users = []domain.User{
		{ID: "u-1", CreatedAt: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)},
	}
	router := newTestRouter(t, store)
	token := signToken(t, "member")

	rec := doRequest(router, http.MethodGet, "/v1/analytics/weekly-review?date=2024-06-12", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report domain.WeeklyReviewReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.CurrentWeek.WeekStart != "2024-06-08" {
		t.Errorf("expected week start 2024-06-08, got %s", report.CurrentWeek.WeekStart)
	}

	rec = doRequest(router, http.MethodGet, "/v1/analytics/weekly-review?date=12-06-2024", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", rec.Code)
	}
}

func TestRecruitmentEndpoints(t *testing.T) {
	store := memstore.New()
	store.Occupations = []domain.Occupation{
		{ID: "occ-1", Sector: "Healthcare", JobTitleID: "jt-1", OccupationTitle: "Nurse", HeadcountTarget: 5, SkillLevel: "skilled", AnnualTrainingTarget: 2},
	}
	store.CandidateProfiles = []domain.CandidateProfile{
		{ID: "cp-1", UserID: "alice", Sectors: []string{"healthcare"}},
	}
	router := newTestRouter(t, store)
	token := signToken(t, "member")

	rec := doRequest(router, http.MethodGet, "/v1/recruitment/reports/summary", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary domain.RecruitmentSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if summary.TotalRecruited != 1 || summary.TotalTarget != 5 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	rec = doRequest(router, http.MethodPost, "/v1/recruitment/match", token,
		`{"id":"cp-2","skills":[],"sectors":["Healthcare "],"job_titles":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var match domain.OccupationMatch
	if err := json.Unmarshal(rec.Body.Bytes(), &match); err != nil {
		t.Fatalf("decoding match: %v", err)
	}
	if match.MatchReason != domain.MatchReasonSector || len(match.MatchingOccupations) != 1 {
		t.Errorf("unexpected match: %+v", match)
	}
}
