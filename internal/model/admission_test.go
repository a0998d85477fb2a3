package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewForwardedRecord(t *testing.T) {
	receivedAt := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.FixedZone("IST", 5*3600+1800))
	fields := map[string]any{
		FieldFullName:       "Asha Rao",
		FieldClass:          "10th",
		FieldBoard:          "ssc",
		FieldContactNumber:  "9999999999",
		FieldEmail:          "",
		FieldGoogleSheetURL: "https://script.google.com/abc",
		FieldTimestamp:      "client supplied",
		"referral":          "poster",
	}

	record, url, err := NewForwardedRecord(fields, receivedAt)
	if err != nil {
		t.Fatalf("NewForwardedRecord: %v", err)
	}

	if url != "https://script.google.com/abc" {
		t.Fatalf("forwarding URL: got %q", url)
	}
	if _, ok := record[FieldGoogleSheetURL]; ok {
		t.Fatal("googleSheetUrl was not removed from the record")
	}
	if got, want := record[FieldTimestamp], "2026-03-14T03:56:53.589Z"; got != want {
		t.Fatalf("timestamp: got %v, want %v", got, want)
	}
	if record["referral"] != "poster" {
		t.Fatalf("unknown field not passed through: %v", record["referral"])
	}
	if _, ok := fields[FieldTimestamp].(string); !ok || fields[FieldGoogleSheetURL] == nil {
		t.Fatal("input map was modified")
	}
}

func TestNewForwardedRecordNonStringURL(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{"null", nil, false},
		{"false", false, false},
		{"zero", json.Number("0"), false},
		{"number", json.Number("42"), true},
		{"true", true, true},
		{"object", map[string]any{"href": "https://script.google.com/abc"}, true},
		{"array", []any{"https://script.google.com/abc"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, url, err := NewForwardedRecord(map[string]any{FieldGoogleSheetURL: tt.value}, time.Unix(0, 0))
			if tt.wantErr {
				if !errors.Is(err, ErrForwardingURLNotString) {
					t.Fatalf("got %v, want ErrForwardingURLNotString", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewForwardedRecord: %v", err)
			}
			if url != "" {
				t.Fatalf("forwarding URL: got %q, want empty", url)
			}
			if _, ok := record[FieldGoogleSheetURL]; ok {
				t.Fatal("googleSheetUrl was not removed from the record")
			}
		})
	}
}

func TestRecordSubmission(t *testing.T) {
	record := ForwardedRecord{
		FieldFullName:      "Sujal Bansode",
		FieldClass:         "college",
		FieldBoard:         "college",
		FieldContactNumber: json.Number("9876543210"),
		FieldSubjects:      nil,
	}

	sub := record.Submission()
	if sub.FullName != "Sujal Bansode" {
		t.Errorf("FullName: got %q", sub.FullName)
	}
	if sub.ContactNumber != "9876543210" {
		t.Errorf("ContactNumber: got %q", sub.ContactNumber)
	}
	if sub.Subjects != "" {
		t.Errorf("Subjects: got %q, want empty", sub.Subjects)
	}
	if sub.Class.Label() != "College Science" {
		t.Errorf("Class label: got %q", sub.Class.Label())
	}
}

func TestEnumerations(t *testing.T) {
	for _, c := range []Class{Class8th, Class9th, Class10th, Class11th, Class12th, ClassCollege} {
		if !c.Valid() {
			t.Errorf("class %q should be valid", c)
		}
	}
	if Class("7th").Valid() {
		t.Error("class 7th should be invalid")
	}

	for _, b := range []Board{BoardCBSE, BoardSSC, BoardCollege} {
		if !b.Valid() {
			t.Errorf("board %q should be valid", b)
		}
	}
	if Board("icse").Valid() {
		t.Error("board icse should be invalid")
	}
	if BoardCBSE.Label() != "CBSE" || Board("icse").Label() != "icse" {
		t.Error("unexpected board labels")
	}
}
