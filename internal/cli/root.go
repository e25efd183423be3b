// Package cli implements the volview command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"volview/pkg/config"
)

// RootOptions holds global flags and the state PersistentPreRunE builds from
// them.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand creates the root command for the volview CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "volview",
		Short: "Inspect and preview 3-D scalar volumes",
		Long: `volview loads NRRD detached headers (.nhdr) and raw volumes named
<X>x<Y>x<Z>_<type>.raw, normalizes them for rendering and works with
transfer functions stored as .tfl files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "volview.yaml", "config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format override (text|json)")

	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewSlicesCommand(opts))
	cmd.AddCommand(NewTFCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewHeaderCommand(opts))

	return cmd
}

func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Logging.Format = o.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = logger
	return nil
}
