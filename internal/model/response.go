package model

import "time"

// RelayResponse is the JSON body returned by the admission relay.
// Success responses carry Success and Message, failures carry Error.
type RelayResponse struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Delivery outcomes recorded in the audit log
const (
	OutcomeDelivered = "delivered"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeInvalid   = "invalid"
)

// DeliveryResult describes one relay attempt. It carries no submission fields.
type DeliveryResult struct {
	RequestID       string
	DestinationHost string
	Outcome         string
	StatusCode      int
	Error           string
	Duration        time.Duration
	ReceivedAt      time.Time
}
