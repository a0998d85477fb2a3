package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"admission-relay/internal/clock"
	"admission-relay/internal/config"
	"admission-relay/internal/model"
	"admission-relay/pkg/logger"
)

const (
	// MaxBodySize bounds inbound submission bodies and destination error bodies.
	MaxBodySize int64 = 1 << 20

	userAgent = "admission-relay/1.0"

	notifyTimeout = 30 * time.Second

	// maxRecordedErrorSize bounds the error text kept in the delivery log
	maxRecordedErrorSize = 512
	truncatedMarker      = "...[truncated]"
)

// Notifier receives successfully forwarded admissions
type Notifier interface {
	NotifyAdmission(ctx context.Context, submission model.AdmissionSubmission) error
}

// DeliveryRecorder persists relay attempt metadata
type DeliveryRecorder interface {
	Record(result model.DeliveryResult) error
}

// RelayService forwards admission submissions to the spreadsheet webhook
type RelayService struct {
	httpClient *http.Client
	config     *config.RelayConfig
	clock      clock.Clock
	logger     *logger.Logger
	notifier   Notifier
	recorder   DeliveryRecorder
}

// NewRelayService creates a new relay service
func NewRelayService(cfg *config.RelayConfig, clk clock.Clock, log *logger.Logger) *RelayService {
	return &RelayService{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		clock:  clk,
		logger: log,
	}
}

// SetNotifier sets the notifier told about successful admissions
func (s *RelayService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetDeliveryRecorder sets the recorder for attempt metadata
func (s *RelayService) SetDeliveryRecorder(r DeliveryRecorder) {
	s.recorder = r
}

// SubmitJSON decodes a JSON submission body and forwards it
func (s *RelayService) SubmitJSON(ctx context.Context, requestID string, body io.Reader) error {
	fields, err := decodeFields(body)
	if err != nil {
		s.logger.WithRequestID(requestID).Error("Failed to decode submission", "error", err)
		s.record(model.DeliveryResult{
			RequestID:  requestID,
			Outcome:    model.OutcomeFailed,
			Error:      err.Error(),
			ReceivedAt: s.clock.Now(),
		})
		return err
	}
	return s.Submit(ctx, requestID, fields)
}

// Submit forwards decoded submission fields to their destination.
// Exactly one outbound POST is made unless validation fails first.
func (s *RelayService) Submit(ctx context.Context, requestID string, fields map[string]any) error {
	receivedAt := s.clock.Now()
	log := s.logger.WithRequestID(requestID)

	record, destination, err := model.NewForwardedRecord(fields, receivedAt)
	if err != nil {
		log.Warn("Invalid Google Sheet URL", "error", err)
		s.record(model.DeliveryResult{
			RequestID:  requestID,
			Outcome:    model.OutcomeFailed,
			Error:      err.Error(),
			ReceivedAt: receivedAt,
		})
		return err
	}

	clientSupplied := destination != ""
	if !clientSupplied {
		destination = s.config.DefaultWebhookURL
	}

	result := model.DeliveryResult{
		RequestID:       requestID,
		DestinationHost: hostOf(destination),
		ReceivedAt:      receivedAt,
	}

	if destination == "" {
		log.Warn("Google Sheet URL is missing")
		result.Outcome = model.OutcomeInvalid
		result.Error = ErrMissingForwardingURL.Error()
		s.record(result)
		return ErrMissingForwardingURL
	}

	log = log.WithDestination(result.DestinationHost)

	if clientSupplied && !s.allowed(destination) {
		log.Warn("Destination host not in allowlist")
		result.Outcome = model.OutcomeInvalid
		result.Error = ErrDestinationNotAllowed.Error()
		s.record(result)
		return ErrDestinationNotAllowed
	}

	log.Info("Received admission submission", "fields", len(record)-1)

	err = s.send(ctx, destination, record)
	result.Duration = s.clock.Now().Sub(receivedAt)

	var downstream *DownstreamError
	switch {
	case err == nil:
		result.Outcome = model.OutcomeDelivered
		result.StatusCode = http.StatusOK
		log.Info("Successfully submitted to Google Sheets")
	case errors.As(err, &downstream):
		result.Outcome = model.OutcomeRejected
		result.StatusCode = downstream.StatusCode
		result.Error = downstream.Body
		log.Error("Google Sheets error", "status", downstream.StatusCode, "body", truncate(downstream.Body, maxRecordedErrorSize))
	default:
		result.Outcome = model.OutcomeFailed
		result.Error = err.Error()
		log.Error("Failed to reach Google Sheets", "error", err)
	}
	s.record(result)

	if err != nil {
		return err
	}

	if s.notifier != nil {
		go s.notify(requestID, record.Submission())
	}
	return nil
}

// send performs the actual HTTP request to the destination webhook
func (s *RelayService) send(ctx context.Context, destination string, record model.ForwardedRecord) error {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
		return &DownstreamError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodySize))
	return nil
}

// allowed checks a client-supplied destination against the host allowlist
func (s *RelayService) allowed(destination string) bool {
	if len(s.config.AllowedHosts) == 0 {
		return true
	}
	host := hostOf(destination)
	for _, h := range s.config.AllowedHosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

func (s *RelayService) record(result model.DeliveryResult) {
	if s.recorder == nil {
		return
	}
	result.Error = truncate(result.Error, maxRecordedErrorSize)
	if err := s.recorder.Record(result); err != nil {
		s.logger.WithRequestID(result.RequestID).Error("Failed to record delivery", "error", err)
	}
}

func (s *RelayService) notify(requestID string, submission model.AdmissionSubmission) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := s.notifier.NotifyAdmission(ctx, submission); err != nil {
		s.logger.WithRequestID(requestID).Warn("Failed to notify staff", "error", err)
	}
}

// decodeFields reads exactly one JSON value, keeping numbers as json.Number
// so they are forwarded exactly as received. A null body is malformed; any
// other non-object value carries no fields.
func decodeFields(body io.Reader) (map[string]any, error) {
	decoder := json.NewDecoder(io.LimitReader(body, MaxBodySize))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, errors.New("invalid JSON body: unexpected data after JSON value")
	}

	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return nil, errors.New("invalid JSON body: null")
	default:
		return map[string]any{}, nil
	}
}

// truncate cuts s to at most limit bytes on a rune boundary, appending a marker
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	i := limit
	for i > 0 && i > limit-utf8.UTFMax && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i] + truncatedMarker
}

// hostOf returns the lower-cased host of a URL, or "" if it has none
func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
