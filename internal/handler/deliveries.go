package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"admission-relay/internal/repository"
	"admission-relay/pkg/logger"
)

const (
	defaultDeliveryLimit = 50
	maxDeliveryLimit     = 500
)

// DeliveryLister lists recent delivery records
type DeliveryLister interface {
	Recent(limit int) ([]repository.DeliveryRecord, error)
}

// DeliveriesHandler handles delivery audit log requests
type DeliveriesHandler struct {
	lister DeliveryLister
	logger *logger.Logger
}

// NewDeliveriesHandler creates a new deliveries handler
func NewDeliveriesHandler(lister DeliveryLister, log *logger.Logger) *DeliveriesHandler {
	return &DeliveriesHandler{
		lister: lister,
		logger: log,
	}
}

// ListDeliveriesResponse represents the API response
type ListDeliveriesResponse struct {
	Status  string                      `json:"status"`
	Message string                      `json:"message"`
	Data    []repository.DeliveryRecord `json:"data"`
}

// ListDeliveries handles GET /api/v1/deliveries
func (h *DeliveriesHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeliveryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.sendResponse(w, "error", "limit must be a positive integer", nil, http.StatusBadRequest)
			return
		}
		limit = min(n, maxDeliveryLimit)
	}

	records, err := h.lister.Recent(limit)
	if err != nil {
		h.logger.Error("Failed to list deliveries", "error", err)
		h.sendResponse(w, "error", "Failed to retrieve deliveries", nil, http.StatusInternalServerError)
		return
	}

	h.sendResponse(w, "success", "Deliveries retrieved successfully", records, http.StatusOK)
}

// sendResponse sends a JSON response
func (h *DeliveriesHandler) sendResponse(w http.ResponseWriter, status, message string, data []repository.DeliveryRecord, statusCode int) {
	if data == nil {
		data = []repository.DeliveryRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(ListDeliveriesResponse{
		Status:  status,
		Message: message,
		Data:    data,
	})
}
