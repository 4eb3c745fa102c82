package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/canmon/internal/config"
	"github.com/muurk/canmon/internal/logging"
	"github.com/muurk/canmon/internal/version"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "canmon",
		Short: "CANopen Bus Monitor",
		Long: `Monitor a CANopen network through a serial CAN gateway.

The gateway streams captured CAN frames in checksummed batches. canmon
decodes the stream, labels each frame with its CANopen message type and
node, and prints running statistics.

Configuration is read from the default location (see 'canmon config show')
unless --config is given. Command-line flags override file values.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Monitor the gateway on the first USB serial adapter
  canmon monitor /dev/ttyUSB0

  # Monitor with the HTTP live feed and metrics on port 9100
  canmon monitor /dev/ttyUSB0 --http 127.0.0.1:9100

  # Decode a captured byte stream
  canmon replay capture.bin --resync

  # Look up identifiers
  canmon classify 0x181 0x705`,
	}

	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default: OS config directory)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(
		newMonitorCmd(opts),
		newReplayCmd(opts),
		newClassifyCmd(),
		newPortsCmd(),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// loadConfig reads the config file and initialises logging. The log level
// comes from the flag, then the environment, then the file.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	if env := os.Getenv(logging.LogLevelEnvVar); env != "" {
		cfg.LogLevel = env
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "canmon %s\n", version.Full())
		},
	}
}
