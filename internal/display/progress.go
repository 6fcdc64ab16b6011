package display

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// ProgressIndicator reports multi-step work one line per item
type ProgressIndicator struct {
	writer      io.Writer
	total       int
	current     int
	enableColor bool
}

// NewProgressIndicator creates a new progress indicator
func NewProgressIndicator(w io.Writer, total int, enableColor bool) *ProgressIndicator {
	return &ProgressIndicator{writer: w, total: total, enableColor: enableColor}
}

// Step reports one item: "  [N/Total] item: detail"
func (p *ProgressIndicator) Step(item, detail string) {
	p.current++
	line := fmt.Sprintf("  [%d/%d] %s: %s", p.current, p.total, item, detail)
	if p.enableColor {
		line = color.New(color.FgCyan).Sprint(line)
	}
	fmt.Fprintln(p.writer, line)
}

// Complete prints the summary line; format receives the number of steps taken.
func (p *ProgressIndicator) Complete(format string) {
	mark := "OK"
	if p.enableColor {
		mark = color.New(color.FgGreen).Sprint(mark)
	}
	fmt.Fprintf(p.writer, "%s %s\n", mark, fmt.Sprintf(format, p.current))
}
