// Package display provides terminal output for the human-facing verigate
// commands (status, reset, recover, history).
//
// Warnings are rendered as banners:
//
//	display.Warning{
//	    Title:      "Circuit breaker is open",
//	    Message:    "3 consecutive verification failures",
//	    Suggestion: "Review the failures, then run 'verigate reset'",
//	}.Display(os.Stderr, true)
//
// Multi-step work such as orphan recovery reports through a ProgressIndicator:
//
//	progress := display.NewProgressIndicator(os.Stdout, len(orphans), true)
//	for _, o := range orphans {
//	    progress.Step(o.Target, "restored backup")
//	}
//	progress.Complete("Recovered %d files")
//
// Color is passed in explicitly; callers decide from the terminal state.
// All functions accept io.Writer for testability.
package display
