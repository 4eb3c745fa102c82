package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/canmon/internal/protocol"
	"github.com/muurk/canmon/internal/stats"
)

// fakeSource replays data in fixed-size reads and then times out,
// reaches end of input, or fails depending on the configured tail
type fakeSource struct {
	data   []byte
	chunk  int
	eof    bool
	err    error
	closed bool
}

func (s *fakeSource) Read(p []byte) (int, error) {
	if len(s.data) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		if s.eof {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := len(p)
	if s.chunk > 0 && n > s.chunk {
		n = s.chunk
	}
	n = copy(p[:n], s.data)
	s.data = s.data[n:]
	return n, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type recorder struct {
	packets int
	frames  []protocol.ClassifiedFrame
	errs    []error
}

func (r *recorder) OnPacket(*protocol.Packet)           { r.packets++ }
func (r *recorder) OnFrame(cf protocol.ClassifiedFrame) { r.frames = append(r.frames, cf) }
func (r *recorder) OnError(err error)                   { r.errs = append(r.errs, err) }

func build(t *testing.T, frames ...protocol.Frame) []byte {
	t.Helper()
	pkt, err := protocol.BuildPacket(protocol.Version, frames)
	require.NoError(t, err)
	return pkt
}

func examplePacket(t *testing.T) []byte {
	return build(t,
		protocol.Frame{Timestamp: 1000, ID: 0x081, DLC: 1, Data: []byte{0x01}},
		protocol.Frame{Timestamp: 1500, ID: 0x581, DLC: 2, Data: []byte{0xAA, 0xBB}},
	)
}

func newTestMonitor(src protocol.Source, cfg Config) (*Monitor, *stats.Aggregator, *stats.History) {
	agg := stats.NewAggregator()
	hist := stats.NewHistory(16)
	return New(src, agg, hist, cfg), agg, hist
}

func TestRun_DecodesAndClassifies(t *testing.T) {
	src := &fakeSource{data: examplePacket(t), chunk: 7, eof: true}
	rec := &recorder{}
	var reports []stats.Snapshot

	m, agg, hist := newTestMonitor(src, Config{
		Observers: []Observer{rec},
		Reporter:  func(s stats.Snapshot) { reports = append(reports, s) },
	})

	require.NoError(t, m.Run(context.Background()))

	s := agg.Snapshot()
	assert.Equal(t, uint64(1), s.TotalPackets)
	assert.Equal(t, uint64(2), s.TotalFrames)
	assert.Equal(t, uint64(1), s.Categories[protocol.CategoryEmergency])
	assert.Equal(t, uint64(1), s.Categories[protocol.CategorySDOTX])
	assert.Equal(t, uint64(2), s.Nodes[1])
	assert.Zero(t, s.Errors, "end of input is not a deframing error")

	assert.Equal(t, 2, hist.Len())
	assert.Equal(t, 1, rec.packets)
	require.Len(t, rec.frames, 2)
	assert.Equal(t, protocol.CategoryEmergency, rec.frames[0].Category)
	assert.Equal(t, protocol.CategorySDOTX, rec.frames[1].Category)

	require.NotEmpty(t, reports, "final report must be emitted")
	assert.Equal(t, uint64(2), reports[len(reports)-1].TotalFrames)
	assert.True(t, src.closed)
}

func TestRun_CountsErrorsAndRecovers(t *testing.T) {
	garbage := []byte("XXXXXXXX")
	src := &fakeSource{data: append(garbage, examplePacket(t)...), eof: true}
	rec := &recorder{}

	m, agg, _ := newTestMonitor(src, Config{Observers: []Observer{rec}})
	require.NoError(t, m.Run(context.Background()))

	s := agg.Snapshot()
	assert.Equal(t, uint64(1), s.Errors)
	assert.Equal(t, uint64(1), s.ErrorsByKind["bad_magic"])
	assert.Equal(t, uint64(2), s.TotalFrames)

	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], protocol.ErrBadMagic)
}

func TestRun_TrailingGarbageCountedAtEndOfInput(t *testing.T) {
	garbage := bytes.Repeat([]byte{0xEE}, 12)

	for _, resync := range []bool{false, true} {
		name := "without resync"
		if resync {
			name = "with resync"
		}
		t.Run(name, func(t *testing.T) {
			src := &fakeSource{data: append(examplePacket(t), garbage...), eof: true}
			rec := &recorder{}

			m, agg, _ := newTestMonitor(src, Config{
				Deframer:  protocol.Options{Resync: resync},
				Observers: []Observer{rec},
			})
			require.NoError(t, m.Run(context.Background()))

			s := agg.Snapshot()
			assert.Equal(t, uint64(1), s.TotalPackets)
			assert.Equal(t, uint64(1), s.Errors)
			assert.Equal(t, uint64(1), s.ErrorsByKind["bad_magic"])

			require.Len(t, rec.errs, 1)
			assert.ErrorIs(t, rec.errs[0], protocol.ErrBadMagic)
		})
	}
}

func TestRun_TruncatedPacketCounted(t *testing.T) {
	pkt := examplePacket(t)
	src := &fakeSource{data: pkt[:len(pkt)-10]}

	m, agg, hist := newTestMonitor(src, Config{})
	require.NoError(t, m.Step())

	s := agg.Snapshot()
	assert.Equal(t, uint64(1), s.ErrorsByKind["truncated_record"])
	assert.Zero(t, s.TotalFrames, "no frame from an abandoned packet may be counted")
	assert.Zero(t, hist.Len())
}

func TestRun_TransportFailure(t *testing.T) {
	boom := errors.New("device unplugged")
	src := &fakeSource{data: examplePacket(t), err: boom}
	var reports int

	m, agg, _ := newTestMonitor(src, Config{
		Reporter: func(stats.Snapshot) { reports++ },
	})

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrTransportFailure)
	assert.ErrorIs(t, err, boom)

	s := agg.Snapshot()
	assert.Equal(t, uint64(2), s.TotalFrames)
	assert.Equal(t, uint64(1), s.ErrorsByKind["transport_failure"])
	assert.Equal(t, 1, reports)
	assert.True(t, src.closed)
}

func TestRun_Cancelled(t *testing.T) {
	src := &fakeSource{} // times out forever
	var reports int

	m, _, _ := newTestMonitor(src, Config{
		Reporter: func(stats.Snapshot) { reports++ },
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, 1, reports)
	assert.True(t, src.closed)
}

func TestRun_CancelWhilePolling(t *testing.T) {
	src := &fakeSource{}
	m, _, _ := newTestMonitor(src, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRun_PeriodicReports(t *testing.T) {
	var data []byte
	for i := 0; i < 4; i++ {
		data = append(data, examplePacket(t)...)
	}
	src := &fakeSource{data: data, eof: true}
	var reports []stats.Snapshot

	m, _, _ := newTestMonitor(src, Config{
		StatsInterval: 2 * time.Second,
		Reporter:      func(s stats.Snapshot) { reports = append(reports, s) },
	})

	// Every clock read advances one second
	base := time.Unix(1700000000, 0)
	ticks := 0
	m.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}

	require.NoError(t, m.Run(context.Background()))

	// Two periodic reports over four packets plus the final one
	require.Len(t, reports, 3)
	assert.Equal(t, uint64(8), reports[2].TotalFrames)
	assert.LessOrEqual(t, reports[0].TotalFrames, reports[1].TotalFrames)
}

func TestStep_NoDataIsSilent(t *testing.T) {
	src := &fakeSource{data: []byte{0x4F, 0x4E}}
	rec := &recorder{}

	m, agg, _ := newTestMonitor(src, Config{Observers: []Observer{rec}})
	require.NoError(t, m.Step())

	assert.Zero(t, agg.Snapshot().Errors)
	assert.Empty(t, rec.errs)
}

func TestNew_Defaults(t *testing.T) {
	m, agg, hist := newTestMonitor(&fakeSource{}, Config{})
	assert.Equal(t, DefaultStatsInterval, m.interval)
	assert.Same(t, agg, m.Stats())
	assert.Same(t, hist, m.History())
}

func TestFrameFunc(t *testing.T) {
	src := &fakeSource{data: examplePacket(t), eof: true}
	var lines []string

	m, _, _ := newTestMonitor(src, Config{})
	m.AddObserver(FrameFunc(func(cf protocol.ClassifiedFrame) {
		lines = append(lines, cf.String())
	}))
	require.NoError(t, m.Run(context.Background()))

	require.Len(t, lines, 2)
	assert.Equal(t, "[       1.000] ID:0x081 Type:EMERGENCY    Node: 1 DLC:1 Data:[01]", lines[0])
	assert.Equal(t, "[       1.500] ID:0x581 Type:SDO_TX       Node: 1 DLC:2 Data:[AA BB]", lines[1])
}

func TestWriteReport(t *testing.T) {
	agg := stats.NewAggregator()
	agg.Start()
	agg.RecordPacket()
	agg.RecordFrame(protocol.ClassifyFrame(protocol.Frame{ID: 0x081}))
	agg.RecordFrame(protocol.ClassifyFrame(protocol.Frame{ID: 0x581}))
	agg.RecordError(protocol.KindBadMagic)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, agg.Snapshot()))
	out := buf.String()

	assert.Contains(t, out, "Packets:      1")
	assert.Contains(t, out, "Frames:       2")
	assert.Contains(t, out, "Errors:       1")
	assert.Contains(t, out, "bad_magic:")
	assert.Contains(t, out, "EMERGENCY   :      1 ( 50.0%)")
	assert.Contains(t, out, "SDO_TX      :      1 ( 50.0%)")
	assert.Contains(t, out, "Node   1:      2 (100.0%)")
	assert.True(t, strings.Index(out, "EMERGENCY") < strings.Index(out, "SDO_TX"))
}
