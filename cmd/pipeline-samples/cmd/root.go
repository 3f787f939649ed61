package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultContextPath is the descriptor used when --context-path is not given.
const DefaultContextPath = "context.yaml"

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "pipeline-samples",
	Short: "Sample commands running against execution contexts",
	Long: `pipeline-samples runs small commands against an execution context: a folder
described by context.yaml holding input params, secure params and files, and
receiving output params and files.

Commands trigger GitHub Actions and GitLab CI pipelines, wait for them and
import their artifacts, list object store buckets, download and analyze files,
render HTML reports and run nested commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .pipeline-samples.yaml, then ~/.config/pipeline-samples/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")

	bindFlags()

	// Accept both --context_path and --context-path.
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
}

// bindFlags binds the logging flags to global viper (errors are nil when the
// flag exists).
func bindFlags() {
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// addContextPathFlag registers --context-path on c.
func addContextPathFlag(c *cobra.Command, target *string) {
	c.Flags().StringVar(target, "context-path", DefaultContextPath, "Path to the execution context descriptor")
}
