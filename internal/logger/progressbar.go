package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// RetryGauge renders how much of the failure budget has been consumed.
//
//	[######----] 2/3 failures
type RetryGauge struct {
	used        int
	max         int
	width       int
	enableColor bool
}

// NewRetryGauge creates a gauge for used out of max failures.
func NewRetryGauge(used, max, width int, enableColor bool) *RetryGauge {
	if width < 1 {
		width = 10
	}
	return &RetryGauge{used: used, max: max, width: width, enableColor: enableColor}
}

// Percentage returns the consumed budget (0-100)
func (g *RetryGauge) Percentage() int {
	if g.max <= 0 {
		return 0
	}
	perc := (g.used * 100) / g.max
	if perc > 100 {
		perc = 100
	}
	if perc < 0 {
		perc = 0
	}
	return perc
}

// filled returns the number of bar cells for the consumed budget.
func (g *RetryGauge) filled() int {
	if g.max <= 0 {
		return 0
	}
	n := g.used * g.width / g.max
	if n > g.width {
		return g.width
	}
	if n < 0 {
		return 0
	}
	return n
}

// Render generates the gauge string.
// Colors: green when unused, yellow while failures accumulate, red once the breaker is open.
func (g *RetryGauge) Render() string {
	filled := g.filled()
	bar := "[" + strings.Repeat("#", filled) + strings.Repeat("-", g.width-filled) + "]"
	result := fmt.Sprintf("%s %d/%d failures", bar, g.used, g.max)

	if !g.enableColor {
		return result
	}
	switch {
	case g.used >= g.max:
		return color.New(color.FgRed).Sprint(result)
	case g.used > 0:
		return color.New(color.FgYellow).Sprint(result)
	default:
		return color.New(color.FgGreen).Sprint(result)
	}
}
