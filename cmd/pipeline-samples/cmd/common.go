package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/config"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/logging"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/samples"
)

// contextOpener provides the execution context a command runs against.
type contextOpener func(cfg *config.Config, logger *logging.Logger) (*execctx.Context, error)

// loadContext opens an existing context descriptor.
func loadContext(path string) contextOpener {
	return func(_ *config.Config, logger *logging.Logger) (*execctx.Context, error) {
		return execctx.Load(path, logger)
	}
}

// loadConfig loads the unified configuration using global viper, which
// carries the flag bindings.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer, sanitizer *logging.Sanitizer) *logging.Logger {
	return logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    out,
		Sanitizer: sanitizer,
	})
}

// teeContextLog makes ec log into both out and <paths.logs>/execution.log.
// The returned func closes the log file.
func teeContextLog(ec *execctx.Context, cfg *config.Config, out io.Writer) (func(), error) {
	f, err := ec.OpenLogFile()
	if err != nil {
		return nil, fmt.Errorf("opening context log: %w", err)
	}
	ec.SetLogger(newLogger(cfg, io.MultiWriter(out, f), ec.Logger().Sanitizer()))
	return func() { _ = f.Close() }, nil
}

// runKind runs the sample command registered as kind against the context
// provided by open. A failed command is returned as *command.ExitError.
func runKind(c *cobra.Command, kind string, open contextOpener) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := c.OutOrStdout()
	logger := newLogger(cfg, out, nil)

	ec, err := open(cfg, logger)
	if err != nil {
		return err
	}
	if cfg.Log.FileInContext {
		closeLog, err := teeContextLog(ec, cfg, out)
		if err != nil {
			return err
		}
		defer closeLog()
	}

	registry := samples.NewRegistry(samples.Deps{Config: cfg})
	sample, err := registry.New(kind)
	if err != nil {
		return err
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(commandContext(c))
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			ec.Logger().Warn("received interrupt, stopping")
			cancel()
		case <-ctx.Done():
		}
	}()

	return command.Run(ctx, sample, ec).AsError()
}

func commandContext(c *cobra.Command) context.Context {
	if ctx := c.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
