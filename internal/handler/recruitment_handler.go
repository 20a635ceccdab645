package handler

import (
	"encoding/json"
	"net/http"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Workforce recruitment reports — /v1/recruitment
// ============================================================

func recruitmentSummaryHandler(svc *service.RecruitmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/recruitment/reports/summary")
		defer span.End()

		summary, err := svc.SummaryReport(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func skillLevelDetailHandler(svc *service.RecruitmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/recruitment/reports/skill-levels/{level}")
		defer span.End()

		detail, err := svc.SkillLevelDetail(ctx, chi.URLParam(r, "level"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func sectorDetailHandler(svc *service.RecruitmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/recruitment/reports/sectors/{sector}")
		defer span.End()

		detail, err := svc.SectorDetail(ctx, chi.URLParam(r, "sector"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func trainingGapsHandler(svc *service.RecruitmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/recruitment/reports/training-gaps")
		defer span.End()

		gaps, err := svc.TrainingGapReport(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"gaps":  gaps,
			"count": len(gaps),
		})
	}
}

func matchProfileHandler(svc *service.RecruitmentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/recruitment/match")
		defer span.End()

		var profile domain.CandidateProfile
		if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		match, err := svc.MatchProfile(ctx, profile)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, match)
	}
}
