package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a commented default configuration to .pipeline-samples.yaml in the
current directory, or to ~/.config/pipeline-samples/config.yaml with --user.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	initForce bool
	initUser  bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
	initCmd.Flags().BoolVar(&initUser, "user", false, "Write the per-user configuration instead")
}

func runInit(c *cobra.Command, _ []string) error {
	path, err := initTarget()
	if err != nil {
		return err
	}

	if err := config.WriteDefaultConfig(path, initForce); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%w, use --force to overwrite", err)
		}
		return err
	}

	fmt.Fprintln(c.OutOrStdout(), "Configuration written to", path)
	return nil
}

func initTarget() (string, error) {
	if initUser {
		return config.UserConfigPath()
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return filepath.Join(cwd, config.ProjectConfigFile), nil
}
