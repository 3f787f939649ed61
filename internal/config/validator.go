package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates cfg with a fresh Validator.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validatePipeline(&cfg.Pipeline)
	v.validateHTTP(&cfg.HTTP)
	v.validateURL("github.api_url", cfg.GitHub.APIURL, true)
	v.validateURL("gitlab.url", cfg.GitLab.URL, true)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validatePipeline(cfg *PipelineConfig) {
	// A zero timeout is valid: runs are started asynchronously.
	if cfg.Timeout < 0 {
		v.addError("pipeline.timeout", cfg.Timeout, "must not be negative")
	}
	if cfg.WaitInterval < 0 {
		v.addError("pipeline.wait_interval", cfg.WaitInterval, "must not be negative")
	}
	if cfg.QueueTimeout < 0 {
		v.addError("pipeline.queue_timeout", cfg.QueueTimeout, "must not be negative")
	}
	if cfg.PollRetries < 0 {
		v.addError("pipeline.poll_retries", cfg.PollRetries, "must not be negative")
	}
}

func (v *Validator) validateHTTP(cfg *HTTPConfig) {
	if cfg.Timeout <= 0 {
		v.addError("http.timeout", cfg.Timeout, "must be positive")
	}
}

func (v *Validator) validateURL(field, value string, optional bool) {
	if value == "" {
		if !optional {
			v.addError(field, value, "required")
		}
		return
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.addError(field, value, "must be an absolute URL")
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		v.addError(field, value, "scheme must be http or https")
	}
}
