package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestDisplayWarning_TitleOnly(t *testing.T) {
	var buf bytes.Buffer
	Warning{Title: "Configuration Missing"}.Display(&buf, false)

	if got := buf.String(); got != "WARNING: Configuration Missing\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestDisplayWarning_AllFields(t *testing.T) {
	var buf bytes.Buffer
	Warning{
		Title:      "Leftover artifacts",
		Message:    "Something crashed",
		Files:      []string{"a.swift.bak", "b.swift.new"},
		Suggestion: "Run recover",
	}.Display(&buf, false)

	output := buf.String()
	for _, want := range []string{
		"WARNING: Leftover artifacts\n",
		"    Something crashed\n",
		"    Affected files:\n",
		"      1. a.swift.bak\n",
		"      2. b.swift.new\n",
		"    Suggestion: Run recover\n",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestDisplayWarning_SingleFile(t *testing.T) {
	var buf bytes.Buffer
	Warning{Title: "x", Files: []string{"state.json"}}.Display(&buf, false)

	if !strings.Contains(buf.String(), "Affected file:\n") {
		t.Errorf("expected singular label, got %q", buf.String())
	}
}

func TestDisplayWarning_Color(t *testing.T) {
	old := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = old }()

	var buf bytes.Buffer
	Warning{Title: "x"}.Display(&buf, true)

	if !strings.Contains(buf.String(), "\x1b[33m") {
		t.Errorf("expected yellow ANSI code, got %q", buf.String())
	}
}

func TestBreakerOpenWarning(t *testing.T) {
	w := BreakerOpenWarning(3, 3, ".agent_retry_state.json")

	if !strings.Contains(w.Message, "3 consecutive") {
		t.Errorf("unexpected message %q", w.Message)
	}
	if len(w.Files) != 1 || w.Files[0] != ".agent_retry_state.json" {
		t.Errorf("unexpected files %v", w.Files)
	}
	if !strings.Contains(w.Suggestion, "verigate reset") {
		t.Errorf("suggestion should point at reset, got %q", w.Suggestion)
	}
}

func TestOrphansWarning(t *testing.T) {
	w := OrphansWarning([]string{"a.bak"})
	if !strings.Contains(w.Suggestion, "verigate recover") {
		t.Errorf("unexpected suggestion %q", w.Suggestion)
	}
}
