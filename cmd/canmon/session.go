package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/canmon/internal/config"
	"github.com/muurk/canmon/internal/logging"
	"github.com/muurk/canmon/internal/metrics"
	"github.com/muurk/canmon/internal/monitor"
	"github.com/muurk/canmon/internal/protocol"
	"github.com/muurk/canmon/internal/server"
	"github.com/muurk/canmon/internal/stats"
)

const shutdownTimeout = 5 * time.Second

// runSession wires src to the decode loop and its sinks, then runs the loop
// until ctx is cancelled or the source ends. out receives frame lines and
// statistics reports.
func runSession(ctx context.Context, src protocol.Source, cfg *config.Config, out io.Writer) error {
	mc := cfg.Monitor
	agg := stats.NewAggregator()
	hist := stats.NewHistory(mc.HistorySize)

	mon := monitor.New(src, agg, hist, monitor.Config{
		StatsInterval: mc.StatsInterval,
		Deframer: protocol.Options{
			MaxRecords:     mc.MaxRecords,
			Resync:         mc.Resync,
			MaxResyncBytes: mc.MaxResyncBytes,
			VerifyChecksum: mc.VerifyChecksum,
		},
		Reporter: func(s stats.Snapshot) {
			if err := monitor.WriteReport(out, s); err != nil {
				logging.Warn("Failed to write statistics report", zap.Error(err))
			}
		},
	})

	if mc.PrintFrames {
		mon.AddObserver(monitor.FrameFunc(func(cf protocol.ClassifiedFrame) {
			fmt.Fprintln(out, cf)
		}))
	}

	if cfg.HTTP.Listen != "" {
		exporter := metrics.NewExporter()
		mon.AddObserver(exporter)

		srv := server.New(&server.Config{Listen: cfg.HTTP.Listen}, server.Sources{
			Stats:   agg,
			History: hist,
			Metrics: exporter.Handler(),
		})
		if err := srv.Start(); err != nil {
			if c, ok := src.(io.Closer); ok {
				_ = c.Close()
			}
			return err
		}
		mon.AddObserver(srv)

		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				logging.Warn("HTTP server shutdown failed", zap.Error(err))
			}
		}()
	}

	return mon.Run(ctx)
}
