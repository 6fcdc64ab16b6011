package models

import "time"

// VerificationResult is the outcome of one run of the verification command.
//
// Diagnostic is a lossy excerpt meant for the caller to read. It is never
// used to decide anything; Passed is the only authoritative field.
type VerificationResult struct {
	Passed     bool
	Diagnostic string
	Command    string
	ExitCode   int
	TimedOut   bool
	Duration   time.Duration
}
