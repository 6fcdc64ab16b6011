package verify

import "strings"

const (
	// MaxDiagnosticLines caps the number of matching lines kept.
	MaxDiagnosticLines = 15

	// FallbackChars is how much of the output tail is kept when no line matches.
	FallbackChars = 2000
)

// diagnosticKeywords are matched against the lower-cased line.
var diagnosticKeywords = []string{"error:", "failed", "exception"}

// Compact reduces raw verification output to a short excerpt an agent can read.
//
// Lines mentioning an error, failure or exception are kept (trimmed, original
// order, at most MaxDiagnosticLines). When none match, the last FallbackChars
// characters of the output are returned instead.
func Compact(output string) string {
	kept := make([]string, 0, MaxDiagnosticLines)
	for _, line := range strings.Split(output, "\n") {
		if len(kept) == MaxDiagnosticLines {
			break
		}
		if isDiagnosticLine(line) {
			kept = append(kept, strings.TrimSpace(line))
		}
	}

	compact := strings.Join(kept, "\n")
	if strings.TrimSpace(compact) == "" {
		return tail(output, FallbackChars)
	}
	return compact
}

func isDiagnosticLine(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range diagnosticKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
