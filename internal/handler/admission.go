package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"admission-relay/internal/middleware"
	"admission-relay/internal/model"
	"admission-relay/internal/service"
	"admission-relay/pkg/logger"
)

const (
	msgSubmitted               = "Admission form submitted successfully"
	msgURLRequired             = "Google Sheet URL is required"
	msgURLNotAllowed           = "Google Sheet URL is not allowed"
	msgDownstreamFailurePrefix = "Failed to submit to Google Sheets: "
)

// AdmissionHandler relays admission form submissions
type AdmissionHandler struct {
	relayService *service.RelayService
	logger       *logger.Logger
}

// NewAdmissionHandler creates a new admission handler
func NewAdmissionHandler(relay *service.RelayService, log *logger.Logger) *AdmissionHandler {
	return &AdmissionHandler{
		relayService: relay,
		logger:       log,
	}
}

// Submit handles POST /api/v1/admissions
func (h *AdmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	err := h.relayService.SubmitJSON(r.Context(), requestID, r.Body)
	if err != nil {
		status, message := h.mapError(err)
		h.logger.WithRequestID(requestID).Warn("Admission submission failed",
			"status", status,
			"error", err,
		)
		h.sendErrorResponse(w, message, status)
		return
	}

	h.sendSuccessResponse(w)
}

// mapError maps a relay error to a status code and client-facing message
func (h *AdmissionHandler) mapError(err error) (int, string) {
	var downstream *service.DownstreamError
	switch {
	case errors.Is(err, service.ErrMissingForwardingURL):
		return http.StatusBadRequest, msgURLRequired
	case errors.Is(err, service.ErrDestinationNotAllowed):
		return http.StatusBadRequest, msgURLNotAllowed
	case errors.As(err, &downstream):
		return http.StatusInternalServerError, msgDownstreamFailurePrefix + downstream.Body
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// sendSuccessResponse sends success response
func (h *AdmissionHandler) sendSuccessResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	json.NewEncoder(w).Encode(model.RelayResponse{
		Success: true,
		Message: msgSubmitted,
	})
}

// sendErrorResponse sends error response
func (h *AdmissionHandler) sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(model.RelayResponse{
		Error: message,
	})
}
