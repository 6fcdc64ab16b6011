package logger

import (
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/verigate/internal/models"
)

// colorScheme defines consistent colors for outcome and level rendering.
// Green: success
// Red: failure/error
// Yellow: warning
// Cyan: labels and identifiers
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	muted   *color.Color
}

// newColorScheme creates the standard color scheme.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		label:   color.New(color.FgCyan),
		muted:   color.New(color.FgHiBlack),
	}
}

// colorLevel renders a level tag like "WARN" in its level color.
func colorLevel(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// colorStatus renders an outcome status.
// HALT is red like ERROR since both require a human.
func colorStatus(status models.Status) string {
	scheme := newColorScheme()
	switch status {
	case models.StatusSuccess:
		return scheme.success.Sprint(string(status))
	case models.StatusFailed:
		return scheme.warn.Sprint(string(status))
	case models.StatusHalt, models.StatusError:
		return scheme.fail.Sprint(string(status))
	default:
		return scheme.muted.Sprint(string(status))
	}
}

// StatusLabel returns status colored when enableColor is set, plain otherwise.
// Used by the CLI tables (status, history).
func StatusLabel(status models.Status, enableColor bool) string {
	if !enableColor {
		return string(status)
	}
	return colorStatus(status)
}

// Label returns a cyan label when enableColor is set.
func Label(text string, enableColor bool) string {
	if !enableColor {
		return text
	}
	return newColorScheme().label.Sprint(text)
}
