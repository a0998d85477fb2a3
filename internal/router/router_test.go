package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"admission-relay/internal/clock"
	"admission-relay/internal/config"
	"admission-relay/internal/handler"
	mw "admission-relay/internal/middleware"
	"admission-relay/internal/repository"
	"admission-relay/internal/service"
	"admission-relay/pkg/logger"
)

type testApp struct {
	server      *httptest.Server
	destination *httptest.Server
	calls       *atomic.Int32
}

func newTestApp(t *testing.T, apiKey string) *testApp {
	t.Helper()

	calls := &atomic.Int32{}
	destination := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(destination.Close)

	clk := clock.Fake(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	log := logger.Discard()
	cfg := &config.Config{}

	repo, err := repository.NewDeliveryRepository(filepath.Join(t.TempDir(), "deliveries.db"), time.Hour, clk)
	if err != nil {
		t.Fatalf("NewDeliveryRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	relay := service.NewRelayService(&cfg.Relay, clk, log)
	relay.SetDeliveryRecorder(repo)

	r := New(Handlers{
		Admission:  handler.NewAdmissionHandler(relay, log),
		Health:     handler.NewHealthHandler(nil, repo, cfg, clk, log),
		Deliveries: handler.NewDeliveriesHandler(repo, log),
	}, mw.NewAuthMiddleware(apiKey, log), log)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &testApp{server: server, destination: destination, calls: calls}
}

func (a *testApp) submit(t *testing.T, path string) *http.Response {
	t.Helper()
	body := `{"fullName":"Asha Rao","class":"10th","board":"ssc","contactNumber":"9999999999","googleSheetUrl":"` + a.destination.URL + `"}`
	resp, err := http.Post(a.server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAdmissionRoutes(t *testing.T) {
	app := newTestApp(t, "")

	for _, path := range []string{"/api/v1/admissions", "/functions/v1/submit-admission"} {
		t.Run(path, func(t *testing.T) {
			resp := app.submit(t, path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status: got %d", resp.StatusCode)
			}
			if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
				t.Error("missing CORS header on success response")
			}
			if resp.Header.Get(mw.RequestIDHeader) == "" {
				t.Error("missing request ID header")
			}
		})
	}

	if got := app.calls.Load(); got != 2 {
		t.Fatalf("destination calls: got %d, want 2", got)
	}
}

func TestPreflight(t *testing.T) {
	app := newTestApp(t, "")

	req, _ := http.NewRequest(http.MethodOptions, app.server.URL+"/api/v1/admissions", nil)
	req.Header.Set("Origin", "https://newtoncoaching.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", resp.StatusCode)
	}
	if len(body) != 0 {
		t.Fatalf("body: got %q, want empty", body)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); got != "authorization, x-client-info, apikey, content-type" {
		t.Fatalf("Access-Control-Allow-Headers: got %q", got)
	}
	if app.calls.Load() != 0 {
		t.Fatal("preflight triggered an outbound call")
	}
}

func TestDeliveriesRequiresAPIKey(t *testing.T) {
	app := newTestApp(t, "secret")
	app.submit(t, "/api/v1/admissions")

	resp, err := http.Get(app.server.URL + "/api/v1/deliveries")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("without key: got %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/deliveries?limit=5", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("with key: got %d, want 200", resp.StatusCode)
	}

	var listing handler.ListDeliveriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatal(err)
	}
	if len(listing.Data) != 1 || listing.Data[0].Outcome != "delivered" {
		t.Fatalf("deliveries: %+v", listing.Data)
	}
}

func TestDeliveriesHiddenWithoutAPIKey(t *testing.T) {
	app := newTestApp(t, "")
	app.submit(t, "/api/v1/admissions")

	resp, err := http.Get(app.server.URL + "/api/v1/deliveries")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t, "")

	resp, err := http.Get(app.server.URL + "/api/v1/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", resp.StatusCode)
	}

	resp2, err := http.Get(app.server.URL + "/api/v1/admissions")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET admissions: got %d, want 405", resp2.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, "")

	resp, err := http.Get(app.server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("status: %v", body["status"])
	}
	notifier, _ := body["notifier"].(map[string]any)
	if notifier["enabled"] != false {
		t.Fatalf("notifier: %v", body["notifier"])
	}
	deliveryLog, _ := body["delivery_log"].(map[string]any)
	if deliveryLog["enabled"] != true {
		t.Fatalf("delivery_log: %v", body["delivery_log"])
	}
}
