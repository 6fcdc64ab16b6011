package models

import (
	"encoding/json"
	"fmt"
)

// Status is the tag of an invocation Outcome.
type Status string

// Outcome statuses. Exactly one is reported per invocation.
const (
	StatusHalt    Status = "HALT"    // breaker open, nothing was attempted
	StatusSuccess Status = "SUCCESS" // verification passed, token issued
	StatusFailed  Status = "FAILED"  // verification ran and failed, file restored
	StatusError   Status = "ERROR"   // infrastructure, IO or input problem
)

// Outcome is the single structured report produced by an invocation.
//
// Only Status, VerificationToken and Message are part of the wire format.
// The remaining fields carry detail for logging and history.
type Outcome struct {
	Status            Status `json:"status"`
	VerificationToken string `json:"verification_token,omitempty"`
	Message           string `json:"message"`

	FilePath   string `json:"-"`
	Attempt    int    `json:"-"` // failure count after this invocation
	MaxRetries int    `json:"-"`
	Diagnostic string `json:"-"`
	Err        error  `json:"-"`
}

// HaltOutcome reports that the breaker is open.
func HaltOutcome(maxRetries int) Outcome {
	return Outcome{
		Status: StatusHalt,
		Message: fmt.Sprintf("WARNING: maximum retry count reached (%d attempts). Execution has been halted. "+
			"Stop retrying blindly and ask a human engineer for help.", maxRetries),
		Attempt:    maxRetries,
		MaxRetries: maxRetries,
	}
}

// SuccessOutcome reports a verified change and carries its token.
func SuccessOutcome(token string) Outcome {
	return Outcome{
		Status:            StatusSuccess,
		VerificationToken: token,
		Message: fmt.Sprintf("Code written and verification passed. "+
			"Use verification token '%s' to declare the task complete.", token),
	}
}

// FailedOutcome reports a failed verification after the file was restored.
// attempt is the persisted failure count including this invocation.
func FailedOutcome(attempt, maxRetries int, diagnostic string) Outcome {
	return Outcome{
		Status: StatusFailed,
		Message: fmt.Sprintf("Verification failed and the file was restored automatically. (retry %d/%d)\n"+
			"Analyze the condensed errors below and try again:\n%s", attempt, maxRetries, diagnostic),
		Attempt:    attempt,
		MaxRetries: maxRetries,
		Diagnostic: diagnostic,
	}
}

// FailedUnrestoredOutcome reports a counted verification failure whose
// automatic rollback did not complete.
func FailedUnrestoredOutcome(attempt, maxRetries int, diagnostic string, rollbackErr error) Outcome {
	return Outcome{
		Status: StatusFailed,
		Message: fmt.Sprintf("Verification failed and the automatic rollback also failed: %v. "+
			"The file may still hold the rejected content; restore it before retrying. (retry %d/%d)\n"+
			"Analyze the condensed errors below and try again:\n%s", rollbackErr, attempt, maxRetries, diagnostic),
		Attempt:    attempt,
		MaxRetries: maxRetries,
		Diagnostic: diagnostic,
		Err:        rollbackErr,
	}
}

// ErrorOutcome reports a failure outside the verify protocol.
// context describes what was being attempted, e.g. "write or verification".
func ErrorOutcome(context string, err error) Outcome {
	return Outcome{
		Status:  StatusError,
		Message: fmt.Sprintf("Error during %s: %v", context, err),
		Err:     err,
	}
}

// JSON encodes the wire form of the outcome.
func (o Outcome) JSON() ([]byte, error) {
	return json.Marshal(o)
}
