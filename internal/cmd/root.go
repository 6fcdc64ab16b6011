package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for verigate
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verigate",
		Short: "Write-test-verify gate for agent code changes",
		Long: `Verigate applies one file change submitted by an agent, runs the
project's verification build, and keeps the change only if the build passes.

Failed verifications are rolled back and counted. After max_retries
consecutive failures the circuit breaker opens and every invocation
returns HALT until a human runs 'verigate reset'.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewResetCommand())
	cmd.AddCommand(NewRecoverCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
