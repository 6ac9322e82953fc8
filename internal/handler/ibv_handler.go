package handler

import (
	"net/http"

	"github.com/kmoussai/flash-loan-sub005/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type runVerificationRequest struct {
	RequestID string `json:"request_id"`
}

// POST /v1/applications/{applicationID}/ibv/run
func runVerificationHandler(svc *service.Verification, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applicationID := chi.URLParam(r, "applicationID")
		var req runVerificationRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.RequestID == "" {
			writeError(w, http.StatusBadRequest, "request_id is required")
			return
		}

		summary, err := svc.Run(r.Context(), applicationID, req.RequestID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, summary)
	}
}

// GET /v1/applications/{applicationID}/ibv/summary
func getVerificationSummaryHandler(svc *service.Verification, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applicationID := chi.URLParam(r, "applicationID")

		summary, err := svc.GetSummary(r.Context(), applicationID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// POST /v1/applications/{applicationID}/ibv/recompute
func recomputeVerificationHandler(svc *service.Verification, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applicationID := chi.URLParam(r, "applicationID")

		summary, err := svc.Recompute(r.Context(), applicationID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
