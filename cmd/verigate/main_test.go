package main

import (
	"testing"

	"github.com/harrison/verigate/internal/cmd"
)

func TestRootCommandBuilds(t *testing.T) {
	root := cmd.NewRootCommand()
	if root.Use != "verigate" {
		t.Errorf("expected root command 'verigate', got %q", root.Use)
	}
	if cmd.Version == "" {
		t.Error("Version should not be empty")
	}
}
