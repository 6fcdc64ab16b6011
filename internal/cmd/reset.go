package cmd

import (
	"fmt"

	"github.com/harrison/verigate/internal/breaker"
	"github.com/harrison/verigate/internal/gate"
	"github.com/spf13/cobra"
)

// NewResetCommand creates the reset command
func NewResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the failure counter and close the breaker",
		Long: `Reset the consecutive failure count to 0. This is the human
escalation path after a HALT; nothing else closes an open breaker.

Examples:
  # Reset after reviewing the failures (asks for confirmation)
  verigate reset

  # Reset without prompting
  verigate reset --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd, yes)
		},
	}

	addConfigFlag(cmd)
	cmd.Flags().String("state-file", "", "Path to the retry state file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runReset(cmd *cobra.Command, yes bool) error {
	output := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(nil, stateFileFlag(cmd), nil, nil, nil)

	// Lenient read: a corrupt state file is exactly what a reset repairs.
	store := breaker.NewFileStore(cfg.Breaker.StateFile, true)
	count, err := store.Read()
	if err != nil {
		return fmt.Errorf("read retry state: %w", err)
	}

	if !yes {
		fmt.Fprintf(output, "This will reset the failure count (currently %d/%d) in %s\n",
			count, cfg.Breaker.MaxRetries, cfg.Breaker.StateFile)
		if !confirmAction(cmd.InOrStdin(), output) {
			fmt.Fprintf(output, "Operation cancelled.\n")
			return nil
		}
	}

	lock, err := gate.AcquireLock(cfg.Breaker.StateFile)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	if err := breaker.New(store, cfg.Breaker.MaxRetries).Reset(); err != nil {
		return fmt.Errorf("reset retry state: %w", err)
	}

	fmt.Fprintf(output, "Failure count reset to 0/%d.\n", cfg.Breaker.MaxRetries)
	return nil
}
