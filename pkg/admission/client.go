// Package admission is a Go client for the admission relay. It mirrors the
// admission enquiry form: required-field checks, a single in-flight submit,
// and clearing the form once the relay accepts it.
package admission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultPath is the relay route the enquiry page posts to
	DefaultPath = "/functions/v1/submit-admission"

	maxResponseSize = 1 << 20
)

// Submission is the JSON body sent to the relay
type Submission struct {
	FullName       string `json:"fullName"`
	Class          string `json:"class"`
	Board          string `json:"board"`
	ContactNumber  string `json:"contactNumber"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	Subjects       string `json:"subjects"`
	GoogleSheetURL string `json:"googleSheetUrl"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client posts submissions to a relay endpoint
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client for the relay at endpoint (the full URL of the
// submit route). A nil httpClient uses one with a 60 second timeout.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

// Submit posts s to the relay and returns the relay's success message
func (c *Client) Submit(ctx context.Context, s Submission) (string, error) {
	jsonData, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result relayResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &RelayError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	if resp.StatusCode != http.StatusOK || !result.Success {
		msg := result.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &RelayError{StatusCode: resp.StatusCode, Message: msg}
	}

	return result.Message, nil
}
