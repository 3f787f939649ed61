package config

import "time"

// Default values shared by the loader and commands.
const (
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "auto"
	DefaultTimeout      = 1800 * time.Second
	DefaultWaitInterval = 5 * time.Second
	DefaultQueueTimeout = 60 * time.Second
	DefaultHTTPTimeout  = 60 * time.Second
	DefaultGitLabURL    = "https://gitlab.com"
)

// DefaultConfigYAML is a commented starting point for a config file.
const DefaultConfigYAML = `# pipeline-samples configuration
#
# Values not specified here use built-in defaults. Every key can also be set
# through PIPELINE_SAMPLES_<SECTION>_<KEY> environment variables.

log:
  level: info          # debug, info, warn, error
  format: auto         # auto, text, json
  file_in_context: false

pipeline:
  timeout: 30m         # how long to wait for a remote run; 0 starts runs asynchronously
  wait_interval: 5s    # delay between status polls, at least 1s
  queue_timeout: 60s   # how long to look for a dispatched GitHub run
  poll_retries: 0      # extra attempts for a failed status read

http:
  timeout: 60s

github:
  api_url: ""          # set for GitHub Enterprise, e.g. https://ghe.example.com/api/v3/

gitlab:
  url: https://gitlab.com
`

// Default returns a Config populated with defaults, for callers that do not
// load a config file (tests, nested commands).
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Pipeline: PipelineConfig{
			Timeout:      DefaultTimeout,
			WaitInterval: DefaultWaitInterval,
			QueueTimeout: DefaultQueueTimeout,
		},
		HTTP:   HTTPConfig{Timeout: DefaultHTTPTimeout},
		GitLab: GitLabConfig{URL: DefaultGitLabURL},
	}
}
