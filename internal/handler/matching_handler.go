package handler

import (
	"encoding/json"
	"net/http"

	"github.com/havenlabs/haven-core-go/internal/domain"
	"github.com/havenlabs/haven-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Support matching — /v1/matching
// ============================================================

func runMatchingHandler(svc *service.MatchingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/matching/run")
		defer span.End()

		result, err := svc.RunMatchingPass(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("matching.pairs", result.MatchedPairs))
		writeJSON(w, http.StatusOK, result)
	}
}

func listPartnershipsHandler(svc *service.MatchingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/matching/partnerships")
		defer span.End()

		status := domain.PartnershipStatus(r.URL.Query().Get("status"))
		if status != "" && status != domain.PartnershipActive && !status.IsTerminal() {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}

		partnerships, err := svc.ListPartnerships(ctx, status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"partnerships": partnerships,
			"count":        len(partnerships),
		})
	}
}

func createPartnershipHandler(svc *service.MatchingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/matching/partnerships")
		defer span.End()

		var req struct {
			User1ID string `json:"user1_id"`
			User2ID string `json:"user2_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		partnership, err := svc.CreatePartnership(ctx, req.User1ID, req.User2ID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, partnership)
	}
}

func endPartnershipHandler(svc *service.MatchingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/matching/partnerships/{partnershipId}/end")
		defer span.End()

		id := chi.URLParam(r, "partnershipId")

		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Status == "" {
			req.Status = string(domain.PartnershipCompleted)
		}

		if err := svc.EndPartnership(ctx, id, domain.PartnershipStatus(req.Status)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": req.Status})
	}
}
