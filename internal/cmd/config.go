package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harrison/verigate/internal/config"
	"github.com/harrison/verigate/internal/logger"
	"github.com/spf13/cobra"
)

// addConfigFlag registers --config on cmd.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .verigate/config.yaml)")
}

// loadConfig reads --config when given, otherwise .verigate/ in the current
// directory. VERIGATE_* environment variables apply in both cases.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	if configPath == "" {
		cfg, err := config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stateFileFlag returns --state-file when it was set, nil otherwise.
func stateFileFlag(cmd *cobra.Command) *string {
	if !cmd.Flags().Changed("state-file") {
		return nil
	}
	v, _ := cmd.Flags().GetString("state-file")
	return &v
}

// colorEnabled reports whether output to w should be colored.
func colorEnabled(w io.Writer) bool {
	return logger.IsTerminal(w)
}

// confirmAction prompts for confirmation and reads the answer from in
func confirmAction(in io.Reader, output io.Writer) bool {
	scanner := bufio.NewScanner(in)

	fmt.Fprintf(output, "Continue? [y/N]: ")

	if !scanner.Scan() {
		return false
	}

	response := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return response == "y" || response == "yes"
}
