package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	GitLab   GitLabConfig   `mapstructure:"gitlab"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// FileInContext tees log records into <paths.logs>/execution.log of the
	// execution context a command runs in.
	FileInContext bool `mapstructure:"file_in_context"`
}

// PipelineConfig holds the defaults of remote pipeline commands. Context
// params (params.timeout_seconds, params.wait_interval) override them.
type PipelineConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	WaitInterval time.Duration `mapstructure:"wait_interval"`
	QueueTimeout time.Duration `mapstructure:"queue_timeout"`
	PollRetries  int           `mapstructure:"poll_retries"`
}

// HTTPConfig configures outbound HTTP clients.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// GitHubConfig configures the GitHub Actions remote.
type GitHubConfig struct {
	// APIURL overrides the API endpoint for GitHub Enterprise.
	APIURL string `mapstructure:"api_url"`
}

// GitLabConfig configures the GitLab CI remote.
type GitLabConfig struct {
	URL string `mapstructure:"url"`
}

// TimeoutSeconds returns the pipeline timeout in whole seconds.
func (c PipelineConfig) TimeoutSeconds() int {
	return int(c.Timeout / time.Second)
}

// WaitIntervalSeconds returns the poll interval in whole seconds.
func (c PipelineConfig) WaitIntervalSeconds() int {
	return int(c.WaitInterval / time.Second)
}
