package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DirName is the per-project directory holding verigate files
const DirName = ".verigate"

// Home returns the verigate directory for a project root.
// Priority order:
//  1. VERIGATE_HOME environment variable (if set)
//  2. <root>/.verigate
func Home(root string) string {
	if home := os.Getenv("VERIGATE_HOME"); home != "" {
		return home
	}
	return filepath.Join(root, DirName)
}

// ConfigPath returns the config file location inside home
func ConfigPath(home string) string {
	return filepath.Join(home, "config.yaml")
}

// EnvPath returns the dotenv file location inside home
func EnvPath(home string) string {
	return filepath.Join(home, ".env")
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
