package handler

import (
	"net/http"

	"github.com/havenlabs/haven-core-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Weekly performance analytics — /v1/analytics
// ============================================================

func weeklyReviewHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/analytics/weekly-review")
		defer span.End()

		refDate, err := parseDateParam(r, "date")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("review.date", refDate.Format("2006-01-02")))

		report, err := svc.WeeklyPerformanceReview(ctx, refDate)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func platformMetricsHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/metrics/platform")
		defer span.End()

		snapshot, err := svc.PlatformSnapshot(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}
