package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestOutcomeJSON_WireShape(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		keys    []string
	}{
		{
			name:    "halt",
			outcome: HaltOutcome(3),
			keys:    []string{"status", "message"},
		},
		{
			name:    "success carries token",
			outcome: SuccessOutcome("PASS_0A1B2C3D"),
			keys:    []string{"status", "verification_token", "message"},
		},
		{
			name:    "failed",
			outcome: FailedOutcome(1, 3, "error: boom"),
			keys:    []string{"status", "message"},
		},
		{
			name:    "error",
			outcome: ErrorOutcome("write or verification", errors.New("disk full")),
			keys:    []string{"status", "message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.outcome.JSON()
			if err != nil {
				t.Fatalf("JSON() error = %v", err)
			}

			var got map[string]interface{}
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(got) != len(tt.keys) {
				t.Errorf("got keys %v, want exactly %v", got, tt.keys)
			}
			for _, k := range tt.keys {
				if _, ok := got[k]; !ok {
					t.Errorf("missing key %q in %s", k, data)
				}
			}
			if got["status"] != string(tt.outcome.Status) {
				t.Errorf("status = %v, want %s", got["status"], tt.outcome.Status)
			}
		})
	}
}

func TestSuccessOutcome_EmbedsToken(t *testing.T) {
	o := SuccessOutcome("PASS_DEADBEEF")
	if o.VerificationToken != "PASS_DEADBEEF" {
		t.Errorf("token = %q", o.VerificationToken)
	}
	if !strings.Contains(o.Message, "PASS_DEADBEEF") {
		t.Errorf("message should embed token, got %q", o.Message)
	}
}

func TestFailedOutcome_ReportsRetryCountAndDiagnostic(t *testing.T) {
	o := FailedOutcome(3, 3, "error: syntax")
	if !strings.Contains(o.Message, "3/3") {
		t.Errorf("message should contain 3/3, got %q", o.Message)
	}
	if !strings.Contains(o.Message, "error: syntax") {
		t.Errorf("message should contain diagnostic, got %q", o.Message)
	}
}

func TestFailedUnrestoredOutcome_StaysFailed(t *testing.T) {
	rollbackErr := errors.New("rename View.swift.bak: no such file or directory")
	o := FailedUnrestoredOutcome(2, 3, "error: syntax", rollbackErr)
	if o.Status != StatusFailed {
		t.Errorf("status = %q, want FAILED", o.Status)
	}
	if !errors.Is(o.Err, rollbackErr) {
		t.Errorf("Err = %v, want rollback error", o.Err)
	}
	for _, want := range []string{"rollback also failed", "no such file", "2/3", "error: syntax"} {
		if !strings.Contains(o.Message, want) {
			t.Errorf("message should contain %q, got %q", want, o.Message)
		}
	}
}

func TestHaltOutcome_AsksForHuman(t *testing.T) {
	o := HaltOutcome(5)
	if !strings.Contains(o.Message, "(5 attempts)") {
		t.Errorf("message should name the limit, got %q", o.Message)
	}
	if !strings.Contains(o.Message, "human") {
		t.Errorf("message should escalate to a human, got %q", o.Message)
	}
}
