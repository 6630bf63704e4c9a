// Package cli implements the formrelay command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ASHISH26940/formrelay/internal/config"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

// DefaultConfigPath is used when --config is not given. A missing file at
// this path means "use the defaults".
const DefaultConfigPath = "config.toml"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand creates the root command for the formrelay CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "formrelay",
		Short:         "Serve a static site and capture its form submissions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", DefaultConfigPath, "path to config file (.toml, .yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (trace|debug|info|warn|error), overrides config")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))

	return cmd
}

// loadConfig reads and validates the configuration named by opts.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.New()
	if err := cfg.Load(opts.ConfigPath); err != nil {
		if !(errors.Is(err, os.ErrNotExist) && opts.ConfigPath == DefaultConfigPath) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the root logger. Services log through named children,
// so every line carries the name of the service that wrote it.
func newLogger(level string, out io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "formrelay",
		Level:  hclog.LevelFromString(level),
		Output: out,
	})
}
