package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/harrison/verigate/internal/history"
	"github.com/harrison/verigate/internal/logger"
	"github.com/harrison/verigate/internal/models"
	"github.com/spf13/cobra"
)

// statusWidth pads status labels so colored and plain output align.
const statusWidth = 7

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	var (
		limit  int
		file   string
		status string
		stats  bool
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded invocation outcomes",
		Long: `List recorded invocations, most recent first.

Examples:
  # Last 20 invocations
  verigate history

  # Every failed attempt on one file
  verigate history --file App/View.swift --status FAILED --limit 0

  # Totals per outcome
  verigate history --stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := history.Filter{
				FilePath: file,
				Status:   models.Status(strings.ToUpper(status)),
				Limit:    limit,
			}
			return runHistory(cmd, filter, stats, dbPath)
		},
	}

	addConfigFlag(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of attempts to show (0 = all)")
	cmd.Flags().StringVar(&file, "file", "", "Only show attempts for this file path")
	cmd.Flags().StringVar(&status, "status", "", "Only show attempts with this status")
	cmd.Flags().BoolVar(&stats, "stats", false, "Show the number of attempts per status")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (overrides config)")

	return cmd
}

func runHistory(cmd *cobra.Command, filter history.Filter, stats bool, dbPathOverride string) error {
	output := cmd.OutOrStdout()
	enableColor := colorEnabled(output)

	dbPath := dbPathOverride
	if dbPath == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dbPath = cfg.History.DBPath
	}

	// Check if database exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No history database found at: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	if stats {
		counts, err := store.CountByStatus(ctx)
		if err != nil {
			return err
		}
		printStats(output, counts, enableColor)
		return nil
	}

	attempts, err := store.List(ctx, filter)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintf(output, "No attempts recorded.\n")
		return nil
	}

	for _, a := range attempts {
		printAttempt(output, a, enableColor)
	}
	return nil
}

func printAttempt(w io.Writer, a *history.Attempt, enableColor bool) {
	fmt.Fprintf(w, "#%-4d %s  %s  %s  failures %d->%d  %s",
		a.ID,
		a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		paddedStatus(a.Status, enableColor),
		a.FilePath,
		a.CountBefore,
		a.CountAfter,
		(time.Duration(a.DurationMs) * time.Millisecond).String(),
	)
	if a.Token != "" {
		fmt.Fprintf(w, "  %s", a.Token)
	}
	if a.TimedOut {
		fmt.Fprintf(w, "  (timed out)")
	}
	fmt.Fprintln(w)

	if a.Diagnostic != "" {
		for _, line := range strings.Split(strings.TrimRight(a.Diagnostic, "\n"), "\n") {
			fmt.Fprintf(w, "        %s\n", line)
		}
	}
}

func printStats(w io.Writer, counts map[models.Status]int, enableColor bool) {
	total := 0
	for _, s := range []models.Status{models.StatusSuccess, models.StatusFailed, models.StatusHalt, models.StatusError} {
		fmt.Fprintf(w, "%s  %d\n", paddedStatus(s, enableColor), counts[s])
		total += counts[s]
	}
	fmt.Fprintf(w, "%s  %d\n", logger.Label(fmt.Sprintf("%-*s", statusWidth, "TOTAL"), enableColor), total)
}

func paddedStatus(status models.Status, enableColor bool) string {
	pad := statusWidth - len(status)
	if pad < 0 {
		pad = 0
	}
	return logger.StatusLabel(status, enableColor) + strings.Repeat(" ", pad)
}
