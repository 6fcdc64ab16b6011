package cmd

import (
	"fmt"

	"github.com/harrison/verigate/internal/display"
	"github.com/harrison/verigate/internal/gate"
	"github.com/harrison/verigate/internal/snapshot"
	"github.com/spf13/cobra"
)

// NewRecoverCommand creates the recover command
func NewRecoverCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "recover [dir]",
		Short: "Restore files left behind by an interrupted invocation",
		Long: `Return files under dir (default: current directory) to their captured
state after an interrupted invocation. Only artifacts recorded in the
snapshot journal next to the state file are touched: a backup is moved
back over its target, a new-file marker deletes the unverified target.
Other .bak and .new files are never modified.

Examples:
  # List what would be recovered
  verigate recover --dry-run

  # Recover everything under mobile/
  verigate recover mobile`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runRecover(cmd, dir, dryRun)
		},
	}

	addConfigFlag(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List artifacts without changing anything")

	return cmd
}

func runRecover(cmd *cobra.Command, dir string, dryRun bool) error {
	output := cmd.OutOrStdout()
	enableColor := colorEnabled(output)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	journal := snapshot.NewJournal(gate.JournalPath(cfg.Breaker.StateFile))

	orphans, err := journal.Orphans(dir)
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		fmt.Fprintf(output, "No leftover snapshot artifacts found in %s\n", dir)
		return nil
	}

	if dryRun {
		artifacts := make([]string, 0, len(orphans))
		for _, o := range orphans {
			artifacts = append(artifacts, o.Artifact)
		}
		display.OrphansWarning(artifacts).Display(output, enableColor)
		return nil
	}

	lock, err := gate.AcquireLock(cfg.Breaker.StateFile)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	progress := display.NewProgressIndicator(output, len(orphans), enableColor)
	for _, o := range orphans {
		action, err := journal.Recover(o.Target)
		if err != nil {
			return fmt.Errorf("recover %s: %w", o.Target, err)
		}
		progress.Step(o.Target, action.String())
	}
	progress.Complete("Recovered %d files")

	return nil
}
