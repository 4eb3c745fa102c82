package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/canmon/internal/config"
	"github.com/muurk/canmon/internal/protocol"
	"github.com/muurk/canmon/internal/serialport"
)

// decodeFlags are the decode-loop flags shared by monitor and replay
type decodeFlags struct {
	statsInterval  time.Duration
	historySize    int
	maxRecords     int
	resync         bool
	maxResyncBytes int
	verifyChecksum bool
	quiet          bool
	httpListen     string
}

func (f *decodeFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.DurationVar(&f.statsInterval, "stats-interval", config.DefaultStatsInterval, "Period between statistics reports")
	flags.IntVar(&f.historySize, "history-size", config.DefaultHistorySize, "Frames retained for the history view")
	flags.IntVar(&f.maxRecords, "max-records", config.DefaultMaxRecords, "Largest record count accepted in a packet header")
	flags.BoolVar(&f.resync, "resync", false, "Scan forward for the next packet after a bad magic")
	flags.IntVar(&f.maxResyncBytes, "max-resync-bytes", config.DefaultMaxResyncBytes, "Bytes scanned per resync attempt")
	flags.BoolVar(&f.verifyChecksum, "verify-checksum", false, "Drop packets whose CRC-32 trailer does not match")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "Do not print individual frames")
	flags.StringVar(&f.httpListen, "http", "", "Serve live feed, JSON views and metrics on this address (e.g. 127.0.0.1:9100)")
}

// apply copies explicitly set flags over the file configuration
func (f *decodeFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	m := cfg.Monitor
	if flags.Changed("stats-interval") {
		m.StatsInterval = f.statsInterval
	}
	if flags.Changed("history-size") {
		m.HistorySize = f.historySize
	}
	if flags.Changed("max-records") {
		m.MaxRecords = f.maxRecords
	}
	if flags.Changed("resync") {
		m.Resync = f.resync
	}
	if flags.Changed("max-resync-bytes") {
		m.MaxResyncBytes = f.maxResyncBytes
	}
	if flags.Changed("verify-checksum") {
		m.VerifyChecksum = f.verifyChecksum
	}
	if f.quiet {
		m.PrintFrames = false
	}
	if flags.Changed("http") {
		cfg.HTTP.Listen = f.httpListen
	}
	return cfg.Validate()
}

func newMonitorCmd(opts *globalOptions) *cobra.Command {
	df := &decodeFlags{}
	var baudRate int
	var readTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "monitor [port]",
		Short: "Monitor the bus through a serial gateway",
		Long: `Open the gateway's serial port and print every decoded CAN frame with its
CANopen message type and node. Statistics are reported periodically and once
more on exit (Ctrl+C).

The port argument overrides serial.port from the config file.`,
		Example: `  # Linux
  canmon monitor /dev/ttyUSB0

  # Windows, statistics every 30 seconds, no frame listing
  canmon monitor COM3 --stats-interval 30s --quiet

  # Recover from line noise and reject corrupted packets
  canmon monitor /dev/ttyUSB0 --resync --verify-checksum`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Serial.Port = args[0]
			}
			if cmd.Flags().Changed("baud") {
				cfg.Serial.BaudRate = baudRate
			}
			if cmd.Flags().Changed("read-timeout") {
				cfg.Serial.ReadTimeout = readTimeout
			}
			if err := df.apply(cmd, cfg); err != nil {
				return err
			}
			if cfg.Serial.Port == "" {
				return fmt.Errorf("no serial port given (pass it as an argument or set serial.port; see 'canmon ports')")
			}

			port, err := serialport.Open(serialport.Config{
				Name:        cfg.Serial.Port,
				BaudRate:    cfg.Serial.BaudRate,
				ReadTimeout: cfg.Serial.ReadTimeout,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "Monitoring %s at %d baud (Ctrl+C to stop)\n", cfg.Serial.Port, cfg.Serial.BaudRate)
			return runSession(ctx, port, cfg, cmd.OutOrStdout())
		},
	}

	df.register(cmd)
	cmd.Flags().IntVarP(&baudRate, "baud", "b", config.DefaultBaudRate, "Serial baud rate")
	cmd.Flags().DurationVar(&readTimeout, "read-timeout", config.DefaultReadTimeout, "Serial read timeout")
	return cmd
}

func newReplayCmd(opts *globalOptions) *cobra.Command {
	df := &decodeFlags{}

	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Decode a captured gateway byte stream",
		Long: `Decode a file containing raw bytes captured from the gateway link, exactly as
the monitor command would, and print the frames and final statistics.

Use '-' to read from standard input.`,
		Example: `  canmon replay capture.bin
  canmon replay capture.bin --resync --verify-checksum --quiet
  cat /dev/ttyUSB0 | canmon replay -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := df.apply(cmd, cfg); err != nil {
				return err
			}

			var src *serialport.ReaderSource
			if args[0] == "-" {
				src = serialport.NewReaderSource(cmd.InOrStdin())
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open capture: %w", err)
				}
				src = serialport.NewReaderSource(f)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSession(ctx, src, cfg, cmd.OutOrStdout())
		},
	}

	df.register(cmd)
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <id>...",
		Short: "Show the CANopen message type and node of identifiers",
		Long: `Classify CAN identifiers the same way the monitor does. Identifiers may be
given in decimal, hex (0x581) or octal (0o17).`,
		Example: `  canmon classify 0x000 0x181 0x705
  canmon classify 1409`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				id, err := strconv.ParseUint(arg, 0, 32)
				if err != nil {
					return fmt.Errorf("invalid identifier %q: %w", arg, err)
				}
				cat, node := protocol.Classify(uint32(id))

				nodeText := fmt.Sprintf("node %3d", node)
				if protocol.IsBroadcast(uint32(id)) {
					nodeText = "broadcast"
				}
				fmt.Fprintf(out, "0x%03X  %-12s %-9s  %s\n", id, cat, nodeText, cat.Description())
			}
			return nil
		},
	}
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := serialport.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, "No serial ports found.")
				return nil
			}
			fmt.Fprintf(out, "Found %d port(s):\n", len(ports))
			fmt.Fprintln(out, "  "+strings.Join(ports, "\n  "))
			return nil
		},
	}
}
