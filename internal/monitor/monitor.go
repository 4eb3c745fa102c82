package monitor

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/canmon/internal/logging"
	"github.com/muurk/canmon/internal/protocol"
	"github.com/muurk/canmon/internal/stats"
)

// DefaultStatsInterval is the report period when none is configured
const DefaultStatsInterval = 10 * time.Second

// Observer receives monitor events from the loop goroutine.
// Implementations must not block.
type Observer interface {
	OnPacket(pkt *protocol.Packet)
	OnFrame(cf protocol.ClassifiedFrame)
	OnError(err error)
}

// FrameFunc adapts a function to Observer, ignoring packet and error events
type FrameFunc func(cf protocol.ClassifiedFrame)

func (f FrameFunc) OnPacket(*protocol.Packet)           {}
func (f FrameFunc) OnFrame(cf protocol.ClassifiedFrame) { f(cf) }
func (f FrameFunc) OnError(error)                       {}

// Config holds the monitor configuration
type Config struct {
	StatsInterval time.Duration          // 0 = DefaultStatsInterval
	Deframer      protocol.Options       // Deframing options
	Reporter      func(s stats.Snapshot) // Called periodically and once on exit (optional)
	Observers     []Observer             // Event sinks (optional)
}

// Monitor is the packet decode loop
type Monitor struct {
	src       protocol.Source
	deframer  *protocol.Deframer
	stats     *stats.Aggregator
	history   *stats.History
	observers []Observer
	reporter  func(stats.Snapshot)
	interval  time.Duration
	now       func() time.Time
}

// New creates a monitor reading from src. The aggregator and history are
// owned by the caller so other components can read them.
func New(src protocol.Source, agg *stats.Aggregator, history *stats.History, cfg Config) *Monitor {
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = DefaultStatsInterval
	}
	return &Monitor{
		src:       src,
		deframer:  protocol.NewDeframer(src, cfg.Deframer),
		stats:     agg,
		history:   history,
		observers: cfg.Observers,
		reporter:  cfg.Reporter,
		interval:  cfg.StatsInterval,
		now:       time.Now,
	}
}

// AddObserver registers an additional event sink. It must be called before Run.
func (m *Monitor) AddObserver(o Observer) {
	m.observers = append(m.observers, o)
}

// Run polls the source until ctx is cancelled, the source reaches end of
// input, or the transport fails. A final report is always emitted and the
// source is closed if it implements io.Closer. Only a transport failure is
// returned as an error.
func (m *Monitor) Run(ctx context.Context) error {
	m.stats.Start()
	lastReport := m.now()

	logging.Info("Monitor started",
		zap.Duration("stats_interval", m.interval),
		zap.Bool("resync", m.deframer.Options().Resync),
		zap.Bool("verify_checksum", m.deframer.Options().VerifyChecksum),
	)

	defer m.finish()

	for {
		if ctx.Err() != nil {
			logging.Info("Monitor stopping", zap.String("reason", "cancelled"))
			return nil
		}

		if err := m.Step(); err != nil {
			if errors.Is(err, io.EOF) {
				logging.Info("Monitor stopping", zap.String("reason", "end of input"))
				return nil
			}
			logging.Error("Transport failure, stopping monitor", zap.Error(err))
			return err
		}

		if now := m.now(); now.Sub(lastReport) >= m.interval {
			m.report()
			lastReport = now
		}
	}
}

// Step performs one packet attempt. Deframing errors are counted and
// swallowed; only transport failures (including end of input) are returned.
func (m *Monitor) Step() error {
	pkt, err := m.deframer.ReadPacket()
	if err != nil {
		kind, _ := protocol.KindOf(err)
		switch kind {
		case protocol.KindNoData:
			return nil
		case protocol.KindTransportFailure:
			if errors.Is(err, io.EOF) {
				return err
			}
			m.fail(kind, err)
			return err
		default:
			m.fail(kind, err)
			return nil
		}
	}

	m.stats.RecordPacket()
	for _, o := range m.observers {
		o.OnPacket(pkt)
	}

	for _, f := range pkt.Frames {
		cf := protocol.ClassifyFrame(f)
		m.stats.RecordFrame(cf)
		m.history.Push(cf)
		logging.LogFrame(cf)
		for _, o := range m.observers {
			o.OnFrame(cf)
		}
	}

	return nil
}

func (m *Monitor) fail(kind protocol.ErrorKind, err error) {
	m.stats.RecordError(kind)
	logging.LogPacketError(err)
	for _, o := range m.observers {
		o.OnError(err)
	}
}

func (m *Monitor) report() {
	s := m.stats.Snapshot()
	logging.LogStats(s)
	if m.reporter != nil {
		m.reporter(s)
	}
}

func (m *Monitor) finish() {
	m.report()
	if c, ok := m.src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logging.Warn("Failed to close source", zap.Error(err))
		}
	}
}

// Stats returns the aggregator the monitor writes to
func (m *Monitor) Stats() *stats.Aggregator {
	return m.stats
}

// History returns the history ring the monitor writes to
func (m *Monitor) History() *stats.History {
	return m.history
}
