package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "github.com/mattn/go-sqlite3"

	"admission-relay/internal/config"
	"admission-relay/internal/model"
	"admission-relay/pkg/logger"
)

var nonDigits = regexp.MustCompile(`[^\d]`)

// WhatsAppNotifier tells admissions staff about new applications over WhatsApp
type WhatsAppNotifier struct {
	client    *whatsmeow.Client
	recipient types.JID
	qrOutput  io.Writer
	logger    *logger.Logger
}

// NewWhatsAppNotifier opens the session store and prepares a client.
// It does not connect; call Connect before sending.
func NewWhatsAppNotifier(ctx context.Context, cfg *config.NotifyConfig, log *logger.Logger) (*WhatsAppNotifier, error) {
	recipient, err := ParseRecipient(cfg.Recipient, cfg.CountryCode)
	if err != nil {
		return nil, fmt.Errorf("invalid notification recipient: %w", err)
	}

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Setup database for session storage
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", cfg.DBPath), waLog.Noop)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	// Get first device or create new one
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return &WhatsAppNotifier{
		client:    whatsmeow.NewClient(deviceStore, waLog.Noop),
		recipient: recipient,
		qrOutput:  os.Stdout,
		logger:    log,
	}, nil
}

// Connect connects to WhatsApp, pairing with a terminal QR code if no
// session exists yet
func (n *WhatsAppNotifier) Connect(ctx context.Context) error {
	if n.client.Store.ID == nil {
		n.logger.Info("No logged in session found, starting QR code pairing")
		return n.pair(ctx)
	}

	n.client.AddEventHandler(n.handleEvent)

	if err := n.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	n.logger.Info("WhatsApp notifier connected", "recipient", n.recipient.String())
	return nil
}

// pair runs the QR login flow, printing each code to the terminal
func (n *WhatsAppNotifier) pair(ctx context.Context) error {
	qrChan, err := n.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}

	n.client.AddEventHandler(n.handleEvent)

	if err := n.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to WhatsApp: %w", err)
	}

	qrCount := 0
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			qrCount++
			fmt.Fprintln(n.qrOutput, "Scan with WhatsApp > Settings > Linked Devices > Link a Device")
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, n.qrOutput)
			n.logger.Info("QR code displayed", "refresh_count", qrCount)
		case "success":
			n.logger.Info("Pairing successful")
			return nil
		case "timeout":
			return fmt.Errorf("QR code scan timeout")
		default:
			if evt.Error != nil {
				return fmt.Errorf("QR code error: %w", evt.Error)
			}
			n.logger.Info("QR channel event", "event", evt.Event)
		}
	}

	if !n.client.IsLoggedIn() {
		return fmt.Errorf("pairing ended without login")
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (n *WhatsAppNotifier) Disconnect() {
	n.client.Disconnect()
	n.logger.Info("WhatsApp notifier disconnected")
}

// IsConnected checks if client is connected
func (n *WhatsAppNotifier) IsConnected() bool {
	return n.client.IsConnected()
}

// ConnectionStatus returns connection status information for /health
func (n *WhatsAppNotifier) ConnectionStatus() map[string]interface{} {
	status := map[string]interface{}{
		"enabled":   true,
		"connected": n.IsConnected(),
		"recipient": n.recipient.String(),
	}
	if n.client.Store.ID != nil {
		status["phone"] = n.client.Store.ID.User
	}
	return status
}

// NotifyAdmission sends a summary of the admission to the configured recipient
func (n *WhatsAppNotifier) NotifyAdmission(ctx context.Context, submission model.AdmissionSubmission) error {
	if !n.IsConnected() {
		return fmt.Errorf("WhatsApp client not connected")
	}

	text := FormatAdmissionMessage(submission)
	message := &waProto.Message{
		Conversation: &text,
	}

	resp, err := n.client.SendMessage(ctx, n.recipient, message)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	n.logger.Info("Staff notified of admission", "message_id", resp.ID)
	return nil
}

// handleEvent handles WhatsApp connection events
func (n *WhatsAppNotifier) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		n.logger.Info("WhatsApp client connected")
	case *events.Disconnected:
		n.logger.Warn("WhatsApp client disconnected")
	case *events.LoggedOut:
		n.logger.Error("Device logged out, pairing required", "reason", v.Reason)
	}
}

// FormatAdmissionMessage renders the staff notification text
func FormatAdmissionMessage(s model.AdmissionSubmission) string {
	var b strings.Builder
	b.WriteString("New admission request\n")
	fmt.Fprintf(&b, "Name: %s\n", s.FullName)
	fmt.Fprintf(&b, "Class: %s\n", s.Class.Label())
	fmt.Fprintf(&b, "Board: %s\n", s.Board.Label())
	fmt.Fprintf(&b, "Contact: %s\n", s.ContactNumber)
	if s.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", s.Email)
	}
	if s.Subjects != "" {
		fmt.Fprintf(&b, "Subjects: %s\n", s.Subjects)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseRecipient parses a group JID or a phone number into a JID
func ParseRecipient(destination, countryCode string) (types.JID, error) {
	if strings.Contains(destination, "@") {
		jid, err := types.ParseJID(destination)
		if err != nil {
			return types.JID{}, fmt.Errorf("invalid JID: %w", err)
		}
		return jid, nil
	}

	phone := NormalizePhoneNumber(destination, countryCode)
	if phone == "" {
		return types.JID{}, fmt.Errorf("invalid phone number format")
	}
	return types.NewJID(phone, types.DefaultUserServer), nil
}

// NormalizePhoneNumber normalizes a phone number to international digits,
// e.g. 091-98765 43210 -> 919876543210 for country code 91.
// Returns "" when the result is not a plausible number.
func NormalizePhoneNumber(phone, countryCode string) string {
	// Remove all non-digit characters
	phone = nonDigits.ReplaceAllString(phone, "")

	// Remove leading zeros
	phone = strings.TrimLeft(phone, "0")

	// A bare national number gets the country code
	if len(phone) == 10 {
		phone = countryCode + phone
	}

	if !strings.HasPrefix(phone, countryCode) {
		return ""
	}

	if len(phone) < 11 || len(phone) > 15 {
		return ""
	}

	return phone
}
