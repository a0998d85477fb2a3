package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrForwardingURLNotString is returned when googleSheetUrl holds a value
// that is neither empty nor a string
var ErrForwardingURLNotString = errors.New("googleSheetUrl must be a string")

// Wire field names of an admission submission
const (
	FieldFullName       = "fullName"
	FieldClass          = "class"
	FieldBoard          = "board"
	FieldContactNumber  = "contactNumber"
	FieldEmail          = "email"
	FieldAddress        = "address"
	FieldSubjects       = "subjects"
	FieldGoogleSheetURL = "googleSheetUrl"
	FieldTimestamp      = "timestamp"
)

// TimestampLayout is ISO-8601 UTC with millisecond precision
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Class is the class a student is applying for
type Class string

const (
	Class8th     Class = "8th"
	Class9th     Class = "9th"
	Class10th    Class = "10th"
	Class11th    Class = "11th"
	Class12th    Class = "12th"
	ClassCollege Class = "college"
)

// Valid reports whether c is one of the offered classes
func (c Class) Valid() bool {
	switch c {
	case Class8th, Class9th, Class10th, Class11th, Class12th, ClassCollege:
		return true
	}
	return false
}

// Label returns the display name of the class
func (c Class) Label() string {
	if c == ClassCollege {
		return "College Science"
	}
	return string(c)
}

// Board is the examination board of a student
type Board string

const (
	BoardCBSE    Board = "cbse"
	BoardSSC     Board = "ssc"
	BoardCollege Board = "college"
)

// Valid reports whether b is one of the supported boards
func (b Board) Valid() bool {
	switch b {
	case BoardCBSE, BoardSSC, BoardCollege:
		return true
	}
	return false
}

// Label returns the display name of the board
func (b Board) Label() string {
	switch b {
	case BoardCBSE:
		return "CBSE"
	case BoardSSC:
		return "SSC"
	case BoardCollege:
		return "College"
	}
	return string(b)
}

// AdmissionSubmission represents an admission request sent by the form
type AdmissionSubmission struct {
	FullName       string `json:"fullName"`
	Class          Class  `json:"class"`
	Board          Board  `json:"board"`
	ContactNumber  string `json:"contactNumber"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	Subjects       string `json:"subjects"`
	GoogleSheetURL string `json:"googleSheetUrl"`
}

// ForwardedRecord is the body posted to the spreadsheet webhook: every
// submitted field except googleSheetUrl, plus a timestamp.
// Unknown fields are kept so the destination sees what the client sent.
type ForwardedRecord map[string]any

// NewForwardedRecord builds a record from decoded submission fields.
// It returns the record and the forwarding URL that was removed from it.
// An empty value (absent, null, false, 0 or "") yields an empty URL; any
// other non-string value is an error.
func NewForwardedRecord(fields map[string]any, receivedAt time.Time) (ForwardedRecord, string, error) {
	record := make(ForwardedRecord, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}

	raw := record[FieldGoogleSheetURL]
	delete(record, FieldGoogleSheetURL)

	var forwardingURL string
	switch v := raw.(type) {
	case string:
		forwardingURL = v
	default:
		if !isEmptyValue(raw) {
			return nil, "", fmt.Errorf("%w, got %T", ErrForwardingURLNotString, raw)
		}
	}

	record[FieldTimestamp] = receivedAt.UTC().Format(TimestampLayout)
	return record, forwardingURL, nil
}

func isEmptyValue(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case bool:
		return !v
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	case float64:
		return v == 0
	}
	return false
}

// Submission extracts the typed view of the record, used for notifications.
// Non-string values are rendered with fmt so nothing is silently dropped.
func (r ForwardedRecord) Submission() AdmissionSubmission {
	return AdmissionSubmission{
		FullName:      r.str(FieldFullName),
		Class:         Class(r.str(FieldClass)),
		Board:         Board(r.str(FieldBoard)),
		ContactNumber: r.str(FieldContactNumber),
		Email:         r.str(FieldEmail),
		Address:       r.str(FieldAddress),
		Subjects:      r.str(FieldSubjects),
	}
}

func (r ForwardedRecord) str(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
