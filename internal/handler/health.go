package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"admission-relay/internal/clock"
	"admission-relay/internal/config"
	"admission-relay/pkg/logger"
)

// StatusReporter reports the state of an optional component
type StatusReporter interface {
	ConnectionStatus() map[string]interface{}
}

// OutcomeCounter reports delivery counts per outcome
type OutcomeCounter interface {
	CountByOutcome() (map[string]int64, error)
}

// HealthHandler handles health check requests
type HealthHandler struct {
	notifier  StatusReporter
	counter   OutcomeCounter
	config    *config.Config
	clock     clock.Clock
	logger    *logger.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
// notifier and counter may be nil when the component is disabled.
func NewHealthHandler(notifier StatusReporter, counter OutcomeCounter, cfg *config.Config, clk clock.Clock, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		notifier:  notifier,
		counter:   counter,
		config:    cfg,
		clock:     clk,
		logger:    log,
		startTime: clk.Now(),
	}
}

// CheckHealth handles GET /health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now()

	notifierStatus := map[string]interface{}{"enabled": false}
	if h.notifier != nil {
		notifierStatus = h.notifier.ConnectionStatus()
	}

	deliveryStatus := map[string]interface{}{"enabled": h.counter != nil}
	if h.counter != nil {
		counts, err := h.counter.CountByOutcome()
		if err != nil {
			h.logger.Error("Failed to count deliveries", "error", err)
			deliveryStatus["error"] = err.Error()
		} else {
			deliveryStatus["counts"] = counts
		}
	}

	response := map[string]interface{}{
		"status":       "healthy",
		"notifier":     notifierStatus,
		"delivery_log": deliveryStatus,
		"relay": map[string]interface{}{
			"default_destination": h.config.Relay.DefaultWebhookURL != "",
			"allowed_hosts":       h.config.Relay.AllowedHosts,
			"timeout":             h.config.Relay.Timeout.String(),
		},
		"uptime":    now.Sub(h.startTime).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
