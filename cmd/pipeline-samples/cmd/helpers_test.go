package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
)

// isolate keeps config lookups away from the machine running the tests and
// resets flag-backed package state.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)

	viper.Reset()
	bindFlags()
	resetFlags(rootCmd)
	return dir
}

// resetFlags puts every flag of c and its subcommands back to its default
// and clears Changed, which cobra keeps between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns everything written to
// its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := Execute()
	return buf.String(), err
}

func newContext(t *testing.T, params map[string]any) *execctx.Context {
	t.Helper()
	ec, err := execctx.Create(t.TempDir(), execctx.Input{Params: params}, execctx.CreateOptions{})
	require.NoError(t, err)
	return ec
}
