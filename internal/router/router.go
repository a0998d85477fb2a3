package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admission-relay/internal/handler"
	mw "admission-relay/internal/middleware"
	"admission-relay/internal/model"
	"admission-relay/pkg/logger"
)

// Handlers groups the HTTP handlers served by the router.
// Deliveries may be nil when the delivery log is disabled; it is only
// served when an API key is configured.
type Handlers struct {
	Admission  *handler.AdmissionHandler
	Health     *handler.HealthHandler
	Deliveries *handler.DeliveriesHandler
}

// New builds the application router
func New(h Handlers, auth *mw.AuthMiddleware, log *logger.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.AccessLog(log))
	r.Use(mw.Recovery(log))
	r.Use(mw.CORS)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public routes
	r.Get("/health", h.Health.CheckHealth)
	r.Post("/functions/v1/submit-admission", h.Admission.Submit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/admissions", h.Admission.Submit)

		// Protected routes
		if h.Deliveries != nil && auth.Enabled() {
			r.Get("/deliveries", auth.Authenticate(h.Deliveries.ListDeliveries))
		}
	})

	return r
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.RelayResponse{Error: message})
}
