package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/havenlabs/haven-core-go/internal/infra/observability"
	"github.com/havenlabs/haven-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps bundles what the router needs. Ready is probed by the health
// endpoints; nil means "always ready" (in-memory mode).
type Deps struct {
	Matching    *service.MatchingService
	Analytics   *service.AnalyticsService
	Recruitment *service.RecruitmentService
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	JWTSecret   []byte
	Ready       func(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	logger := deps.Logger

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(deps.Ready))
	r.Get("/readyz", readyzHandler(deps.Ready))
	r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(deps.JWTSecret, logger))

		// =============================================
		// Support matching & partnerships
		// =============================================
		r.Get("/matching/partnerships", listPartnershipsHandler(deps.Matching, logger))
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(logger))
			r.Post("/matching/run", runMatchingHandler(deps.Matching, logger))
			r.Post("/matching/partnerships", createPartnershipHandler(deps.Matching, logger))
			r.Post("/matching/partnerships/{partnershipId}/end", endPartnershipHandler(deps.Matching, logger))
		})

		// =============================================
		// Weekly performance analytics
		// =============================================
		r.Get("/analytics/weekly-review", weeklyReviewHandler(deps.Analytics, logger))

		// =============================================
		// Workforce recruitment reports
		// =============================================
		r.Get("/recruitment/reports/summary", recruitmentSummaryHandler(deps.Recruitment, logger))
		r.Get("/recruitment/reports/skill-levels/{level}", skillLevelDetailHandler(deps.Recruitment, logger))
		r.Get("/recruitment/reports/sectors/{sector}", sectorDetailHandler(deps.Recruitment, logger))
		r.Get("/recruitment/reports/training-gaps", trainingGapsHandler(deps.Recruitment, logger))
		r.Post("/recruitment/match", matchProfileHandler(deps.Recruitment, logger))

		// =============================================
		// Operational metrics
		// =============================================
		r.Get("/metrics/platform", platformMetricsHandler(deps.Analytics, logger))
	})

	return r
}

// ============================================================
// Health
// ============================================================

func healthzHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type serviceHealth struct {
			Name      string `json:"name"`
			Status    string `json:"status"`
			LatencyMs int64  `json:"latency_ms"`
		}

		services := []serviceHealth{
			{Name: "haven-core", Status: "healthy"},
		}
		overall := "healthy"

		if ready != nil {
			start := time.Now()
			status := "healthy"
			if err := ready(r.Context()); err != nil {
				status = "degraded"
				overall = "degraded"
			}
			services = append(services, serviceHealth{
				Name:      "storage",
				Status:    status,
				LatencyMs: time.Since(start).Milliseconds(),
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":    overall,
			"services":  services,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "storage not ready")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
