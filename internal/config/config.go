package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDestination is the simulator the verification command targets.
const DefaultDestination = "platform=iOS Simulator,name=iPhone 15 Pro"

// VerifyConfig describes the external verification command. The runner
// receives a copy at construction and never re-reads configuration.
type VerifyConfig struct {
	// Workspace is the Xcode workspace passed to -workspace
	Workspace string `yaml:"workspace"`

	// Scheme is the scheme passed to -scheme
	Scheme string `yaml:"scheme"`

	// Destination is the simulator passed to -destination
	Destination string `yaml:"destination"`

	// Command replaces the generated xcodebuild invocation when set (run with sh -c)
	Command string `yaml:"command"`

	// WorkDir is the directory the command runs in (empty = current dir)
	WorkDir string `yaml:"work_dir"`

	// Timeout bounds one verification run (0 = wait forever)
	Timeout time.Duration `yaml:"-"`
}

// BreakerConfig controls the consecutive-failure circuit breaker
type BreakerConfig struct {
	// MaxRetries is the number of failed verifications before the breaker opens
	MaxRetries int `yaml:"max_retries"`

	// StateFile is where the failure counter is persisted
	StateFile string `yaml:"state_file"`

	// LenientState treats an unreadable state file as a zero count
	LenientState bool `yaml:"lenient_state"`
}

// SnapshotConfig controls backup handling
type SnapshotConfig struct {
	// RecoverOrphans resolves leftover .bak/.new artifacts before a new invocation
	RecoverOrphans bool `yaml:"recover_orphans"`
}

// InputConfig controls preprocessing of the submitted content
type InputConfig struct {
	// UnwrapFencedCode strips a single enclosing Markdown code fence from new_code.
	// Off by default so content is written exactly as submitted.
	UnwrapFencedCode bool `yaml:"unwrap_fenced_code"`
}

// HistoryConfig controls the attempt history database
type HistoryConfig struct {
	// Enabled records every invocation outcome
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite database location
	DBPath string `yaml:"db_path"`
}

// TelemetryConfig controls OpenTelemetry tracing
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Config represents verigate configuration options
type Config struct {
	Verify    VerifyConfig    `yaml:"verify"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Input     InputConfig     `yaml:"input"`
	History   HistoryConfig   `yaml:"history"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written (empty = stderr only)
	LogDir string `yaml:"log_dir"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Verify: VerifyConfig{
			Workspace:   "mobile/ios/BestVersionOfYourself.xcworkspace",
			Scheme:      "BestVersionOfYourself",
			Destination: DefaultDestination,
		},
		Breaker: BreakerConfig{
			MaxRetries: 3,
			StateFile:  ".agent_retry_state.json",
		},
		Snapshot: SnapshotConfig{RecoverOrphans: true},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(DirName, "history.db"),
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "http://127.0.0.1:4318",
			ServiceName: "verigate",
		},
		LogLevel: "info",
		LogDir:   filepath.Join(DirName, "logs"),
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Timeout is a duration string in YAML
	type yamlVerify struct {
		VerifyConfig `yaml:",inline"`
		Timeout      string `yaml:"timeout"`
	}
	type yamlConfig struct {
		Verify    yamlVerify      `yaml:"verify"`
		Breaker   BreakerConfig   `yaml:"breaker"`
		History   HistoryConfig   `yaml:"history"`
		Telemetry TelemetryConfig `yaml:"telemetry"`
		LogLevel  string          `yaml:"log_level"`
		LogDir    *string         `yaml:"log_dir"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	v := yamlCfg.Verify
	if v.Workspace != "" {
		cfg.Verify.Workspace = v.Workspace
	}
	if v.Scheme != "" {
		cfg.Verify.Scheme = v.Scheme
	}
	if v.Destination != "" {
		cfg.Verify.Destination = v.Destination
	}
	if v.Command != "" {
		cfg.Verify.Command = v.Command
	}
	if v.WorkDir != "" {
		cfg.Verify.WorkDir = v.WorkDir
	}
	if v.Timeout != "" {
		timeout, err := time.ParseDuration(v.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid verify.timeout format %q: %w", v.Timeout, err)
		}
		cfg.Verify.Timeout = timeout
	}

	if yamlCfg.Breaker.MaxRetries != 0 {
		cfg.Breaker.MaxRetries = yamlCfg.Breaker.MaxRetries
	}
	if yamlCfg.Breaker.StateFile != "" {
		cfg.Breaker.StateFile = yamlCfg.Breaker.StateFile
	}
	if yamlCfg.History.DBPath != "" {
		cfg.History.DBPath = yamlCfg.History.DBPath
	}
	if yamlCfg.Telemetry.Endpoint != "" {
		cfg.Telemetry.Endpoint = yamlCfg.Telemetry.Endpoint
	}
	if yamlCfg.Telemetry.ServiceName != "" {
		cfg.Telemetry.ServiceName = yamlCfg.Telemetry.ServiceName
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	// An explicit empty log_dir disables file logging
	if yamlCfg.LogDir != nil {
		cfg.LogDir = *yamlCfg.LogDir
	}

	// Booleans default to true in places, so only apply them when the key is present
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		applyBool(rawMap, "breaker", "lenient_state", &cfg.Breaker.LenientState)
		applyBool(rawMap, "snapshot", "recover_orphans", &cfg.Snapshot.RecoverOrphans)
		applyBool(rawMap, "input", "unwrap_fenced_code", &cfg.Input.UnwrapFencedCode)
		applyBool(rawMap, "history", "enabled", &cfg.History.Enabled)
		applyBool(rawMap, "telemetry", "enabled", &cfg.Telemetry.Enabled)
	}

	return cfg, nil
}

// applyBool copies section.key from the raw YAML map into dst when present
func applyBool(raw map[string]interface{}, section, key string, dst *bool) {
	sectionMap, ok := raw[section].(map[string]interface{})
	if !ok {
		return
	}
	if value, ok := sectionMap[key].(bool); ok {
		*dst = value
	}
}

// LoadConfigFromDir loads .verigate/config.yaml under dir, after loading
// .verigate/.env into the process environment, and applies VERIGATE_*
// environment overrides on top.
func LoadConfigFromDir(dir string) (*Config, error) {
	home := Home(dir)
	if err := LoadDotEnv(EnvPath(home)); err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(ConfigPath(home))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides configuration from VERIGATE_* variables.
// lookup is os.LookupEnv outside of tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("VERIGATE_MAX_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid VERIGATE_MAX_RETRIES %q: %w", v, err)
		}
		c.Breaker.MaxRetries = n
	}
	if v, ok := lookup("VERIGATE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid VERIGATE_TIMEOUT %q: %w", v, err)
		}
		c.Verify.Timeout = d
	}

	overrides := []struct {
		name string
		dst  *string
	}{
		{"VERIGATE_STATE_FILE", &c.Breaker.StateFile},
		{"VERIGATE_WORKSPACE", &c.Verify.Workspace},
		{"VERIGATE_SCHEME", &c.Verify.Scheme},
		{"VERIGATE_DESTINATION", &c.Verify.Destination},
		{"VERIGATE_COMMAND", &c.Verify.Command},
		{"VERIGATE_LOG_LEVEL", &c.LogLevel},
		{"VERIGATE_OTLP_ENDPOINT", &c.Telemetry.Endpoint},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.name); ok && v != "" {
			*o.dst = v
		}
	}
	return nil
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(maxRetries *int, stateFile *string, timeout *time.Duration, logDir *string, logLevel *string) {
	if maxRetries != nil {
		c.Breaker.MaxRetries = *maxRetries
	}
	if stateFile != nil {
		c.Breaker.StateFile = *stateFile
	}
	if timeout != nil {
		c.Verify.Timeout = *timeout
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.Breaker.MaxRetries < 1 {
		return fmt.Errorf("breaker.max_retries must be >= 1, got %d", c.Breaker.MaxRetries)
	}
	if strings.TrimSpace(c.Breaker.StateFile) == "" {
		return fmt.Errorf("breaker.state_file cannot be empty")
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Verify.Timeout < 0 {
		return fmt.Errorf("verify.timeout must be >= 0, got %v", c.Verify.Timeout)
	}
	if c.Verify.Command == "" && (c.Verify.Workspace == "" || c.Verify.Scheme == "") {
		return fmt.Errorf("verify.workspace and verify.scheme are required when verify.command is not set")
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}
	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return fmt.Errorf("telemetry.service_name cannot be empty when telemetry is enabled")
	}

	return nil
}
