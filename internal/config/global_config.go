package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrConfigExists is returned by WriteDefaultConfig when the target exists
// and overwriting was not requested.
var ErrConfigExists = errors.New("configuration already exists")

// ProjectConfigFile is the config file name looked up in the working
// directory.
const ProjectConfigFile = ".pipeline-samples.yaml"

// UserConfigPath returns the per-user configuration path,
// ~/.config/pipeline-samples/config.yaml.
func UserConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "pipeline-samples", "config.yaml"), nil
}

// WriteDefaultConfig writes DefaultConfigYAML to path. An existing file is
// only replaced when force is set.
func WriteDefaultConfig(path string, force bool) error {
	if _, statErr := os.Stat(path); statErr == nil {
		if !force {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	} else if !os.IsNotExist(statErr) {
		return fmt.Errorf("checking config: %w", statErr)
	}

	if err := AtomicWrite(path, []byte(DefaultConfigYAML)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
