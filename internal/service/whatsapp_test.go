package service

import (
	"strings"
	"testing"

	"go.mau.fi/whatsmeow/types"

	"admission-relay/internal/model"
)

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9876543210", "919876543210"},
		{"+91 98765 43210", "919876543210"},
		{"091-98765-43210", "919876543210"},
		{"09876543210", "919876543210"},
		{"12345", ""},
		{"+44 20 7946 0958", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhoneNumber(tt.in, "91"); got != tt.want {
			t.Errorf("NormalizePhoneNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseRecipient(t *testing.T) {
	t.Run("phone number", func(t *testing.T) {
		jid, err := ParseRecipient("98765 43210", "91")
		if err != nil {
			t.Fatalf("ParseRecipient: %v", err)
		}
		if jid.User != "919876543210" || jid.Server != types.DefaultUserServer {
			t.Errorf("got %v", jid)
		}
	})

	t.Run("group JID", func(t *testing.T) {
		jid, err := ParseRecipient("120363025246125486@g.us", "91")
		if err != nil {
			t.Fatalf("ParseRecipient: %v", err)
		}
		if jid.Server != types.GroupServer {
			t.Errorf("server: got %q", jid.Server)
		}
	})

	t.Run("invalid phone", func(t *testing.T) {
		if _, err := ParseRecipient("call me", "91"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestFormatAdmissionMessage(t *testing.T) {
	msg := FormatAdmissionMessage(model.AdmissionSubmission{
		FullName:      "Eshwari Bhori",
		Class:         model.ClassCollege,
		Board:         model.BoardSSC,
		ContactNumber: "9999999999",
		Subjects:      "Biology",
	})

	for _, want := range []string{
		"Name: Eshwari Bhori",
		"Class: College Science",
		"Board: SSC",
		"Contact: 9999999999",
		"Subjects: Biology",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Email:") {
		t.Errorf("empty email should be omitted:\n%s", msg)
	}
	if strings.HasSuffix(msg, "\n") {
		t.Error("message has trailing newline")
	}
}
