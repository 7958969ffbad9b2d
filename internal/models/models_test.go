package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusCompleted, true},
		{StatusProcessing, false},
		{Status("failed"), false},
		{Status(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.expected {
				t.Errorf("Expected Terminal()=%v for %q, got %v", tt.expected, tt.status, got)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "rfc3339 with zone",
			value:    "2025-03-01T10:20:30Z",
			expected: time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC),
		},
		{
			name:     "python isoformat without zone",
			value:    "2025-03-01T10:20:30.123456",
			expected: time.Date(2025, 3, 1, 10, 20, 30, 123456000, time.UTC),
		},
		{
			name:    "garbage",
			value:   "yesterday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got.Time)
			}
		})
	}
}

func TestChatMessageDecodesBackendHistory(t *testing.T) {
	payload := `[{"id": 7, "role": "assistant", "message": "Brown", "created_at": "2025-03-01T10:20:30.5"}]`

	var raw []ChatMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if raw[0].ID != "7" {
		t.Errorf("Expected id 7, got %q", raw[0].ID)
	}
	if raw[0].Role != RoleAssistant || raw[0].Message != "Brown" {
		t.Errorf("Unexpected message: %+v", raw[0])
	}
	if raw[0].CreatedAt.Second() != 30 {
		t.Errorf("Expected seconds 30, got %d", raw[0].CreatedAt.Second())
	}
}
