package admission

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Form validation messages
const (
	MsgRequiredFields = "Please fill in all required fields."
	MsgWebhookURL     = "Please enter your Google Sheet webhook URL."
)

// ErrSubmitting is returned when Submit is called while a submission is in flight
var ErrSubmitting = errors.New("submission already in progress")

// ValidationError reports a missing form field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RelayError carries the error the relay answered with
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay returned status %d: %s", e.StatusCode, e.Message)
}

// Form holds the admission enquiry fields and the forwarding URL.
// A Form must not be copied after first use.
type Form struct {
	FullName       string
	Class          string
	Board          string
	ContactNumber  string
	Email          string
	Address        string
	Subjects       string
	GoogleSheetURL string

	client     *Client
	submitting atomic.Bool
}

// NewForm creates an empty form that submits through client
func NewForm(client *Client) *Form {
	return &Form{client: client}
}

// Submitting reports whether a submission is in flight
func (f *Form) Submitting() bool {
	return f.submitting.Load()
}

// Validate checks the required fields. Email, address and subjects are free text.
func (f *Form) Validate() error {
	switch {
	case f.FullName == "":
		return &ValidationError{Field: "fullName", Message: MsgRequiredFields}
	case f.Class == "":
		return &ValidationError{Field: "class", Message: MsgRequiredFields}
	case f.ContactNumber == "":
		return &ValidationError{Field: "contactNumber", Message: MsgRequiredFields}
	case f.GoogleSheetURL == "":
		return &ValidationError{Field: "googleSheetUrl", Message: MsgWebhookURL}
	}
	return nil
}

// Submit validates the form and sends it to the relay. On success every
// field except the forwarding URL is cleared.
func (f *Form) Submit(ctx context.Context) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}

	if !f.submitting.CompareAndSwap(false, true) {
		return "", ErrSubmitting
	}
	defer f.submitting.Store(false)

	message, err := f.client.Submit(ctx, f.submission())
	if err != nil {
		return "", err
	}

	f.reset()
	return message, nil
}

// Fill copies every field of s into the form
func (f *Form) Fill(s Submission) {
	f.FullName = s.FullName
	f.Class = s.Class
	f.Board = s.Board
	f.ContactNumber = s.ContactNumber
	f.Email = s.Email
	f.Address = s.Address
	f.Subjects = s.Subjects
	f.GoogleSheetURL = s.GoogleSheetURL
}

func (f *Form) submission() Submission {
	return Submission{
		FullName:       f.FullName,
		Class:          f.Class,
		Board:          f.Board,
		ContactNumber:  f.ContactNumber,
		Email:          f.Email,
		Address:        f.Address,
		Subjects:       f.Subjects,
		GoogleSheetURL: f.GoogleSheetURL,
	}
}

func (f *Form) reset() {
	f.FullName = ""
	f.Class = ""
	f.Board = ""
	f.ContactNumber = ""
	f.Email = ""
	f.Address = ""
	f.Subjects = ""
}
