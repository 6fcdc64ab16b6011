package cmd

import (
	"fmt"

	"github.com/harrison/verigate/internal/breaker"
	"github.com/harrison/verigate/internal/display"
	"github.com/harrison/verigate/internal/logger"
	"github.com/spf13/cobra"
)

// gaugeWidth is the number of cells in the status failure gauge.
const gaugeWidth = 20

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the retry circuit breaker state",
		Long: `Show the consecutive failure count, the limit and whether the
circuit breaker is open. An open breaker means every 'verigate run'
returns HALT until 'verigate reset' is run.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}

	addConfigFlag(cmd)
	cmd.Flags().String("state-file", "", "Path to the retry state file")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	output := cmd.OutOrStdout()
	enableColor := colorEnabled(output)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(nil, stateFileFlag(cmd), nil, nil, nil)

	b := breaker.New(breaker.NewFileStore(cfg.Breaker.StateFile, cfg.Breaker.LenientState), cfg.Breaker.MaxRetries)
	count, open, err := b.Check()
	if err != nil {
		return fmt.Errorf("read retry state: %w", err)
	}

	state := "CLOSED"
	if open {
		state = "OPEN"
	}

	fmt.Fprintf(output, "%s %s\n", logger.Label("State file:", enableColor), cfg.Breaker.StateFile)
	fmt.Fprintf(output, "%s %s\n", logger.Label("Failures:  ", enableColor), logger.NewRetryGauge(count, b.Max(), gaugeWidth, enableColor).Render())
	fmt.Fprintf(output, "%s %s\n", logger.Label("Breaker:   ", enableColor), state)

	if open {
		fmt.Fprintln(output)
		display.BreakerOpenWarning(count, b.Max(), cfg.Breaker.StateFile).Display(output, enableColor)
	}

	return nil
}
