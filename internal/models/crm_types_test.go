package models

import (
	"encoding/json"
	"testing"
)

func TestCRMStringUnmarshal(t *testing.T) {
	var s CRMString

	if err := json.Unmarshal([]byte(`"hello"`), &s); err != nil {
		t.Fatalf("Failed to unmarshal string: %v", err)
	}
	if s.String() != "hello" {
		t.Errorf("Expected hello, got %q", s)
	}

	// The legacy CRM returns false for empty text fields
	if err := json.Unmarshal([]byte(`false`), &s); err != nil {
		t.Fatalf("Failed to unmarshal false: %v", err)
	}
	if s.String() != "" {
		t.Errorf("false must decode as empty string, got %q", s)
	}

	if err := json.Unmarshal([]byte(`true`), &s); err != nil {
		t.Fatalf("Failed to unmarshal true: %v", err)
	}
	if s.String() != "true" {
		t.Errorf("true must decode as the string true, got %q", s)
	}

	if err := json.Unmarshal([]byte(`42`), &s); err == nil {
		t.Error("Numbers must fail to decode into CRMString")
	}
}
