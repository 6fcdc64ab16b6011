package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display writes the warning, in yellow when enableColor is set.
func (w Warning) Display(out io.Writer, enableColor bool) {
	var b strings.Builder

	b.WriteString("WARNING: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected file:\n")
		} else {
			b.WriteString("Affected files:\n")
		}
		for i, file := range w.Files {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, file))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion: ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	if enableColor {
		fmt.Fprint(out, color.New(color.FgYellow).Sprint(b.String()))
		return
	}
	fmt.Fprint(out, b.String())
}

// BreakerOpenWarning is shown when the failure count has reached the limit.
func BreakerOpenWarning(count, max int, stateFile string) Warning {
	return Warning{
		Title:      "Circuit breaker is open",
		Message:    fmt.Sprintf("%d consecutive verification failures (limit %d). Every invocation returns HALT.", count, max),
		Files:      []string{stateFile},
		Suggestion: "Review the failures with 'verigate history', then run 'verigate reset'.",
	}
}

// OrphansWarning lists leftover snapshot artifacts.
func OrphansWarning(artifacts []string) Warning {
	return Warning{
		Title:      "Leftover snapshot artifacts found",
		Message:    "An earlier invocation did not finish; these targets hold unverified content.",
		Files:      artifacts,
		Suggestion: "Run 'verigate recover' to restore them.",
	}
}
