package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/canmon/internal/protocol"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func classified(id uint32) protocol.ClassifiedFrame {
	return protocol.ClassifyFrame(protocol.Frame{ID: id, DLC: 1, Data: []byte{0x01}})
}

func TestAggregator_SpecExample(t *testing.T) {
	agg := NewAggregator()
	agg.Start()

	agg.RecordPacket()
	agg.RecordFrame(classified(0x081))
	agg.RecordFrame(classified(0x581))

	s := agg.Snapshot()
	assert.Equal(t, uint64(1), s.TotalPackets)
	assert.Equal(t, uint64(2), s.TotalFrames)
	assert.Equal(t, uint64(1), s.Categories[protocol.CategoryEmergency])
	assert.Equal(t, uint64(1), s.Categories[protocol.CategorySDOTX])
	assert.Equal(t, uint64(2), s.Nodes[1])
	assert.Zero(t, s.Errors)
}

func TestAggregator_BroadcastNotAttributed(t *testing.T) {
	agg := NewAggregator()
	for _, id := range []uint32{0x000, 0x080, 0x100, 0x705} {
		agg.RecordFrame(classified(id))
	}

	s := agg.Snapshot()
	assert.Equal(t, uint64(4), s.TotalFrames)
	assert.Len(t, s.Nodes, 1)
	assert.Equal(t, uint64(1), s.Nodes[5])
	_, hasZero := s.Nodes[0]
	assert.False(t, hasZero, "node 0 must never be counted")
}

func TestAggregator_CountInvariants(t *testing.T) {
	agg := NewAggregator()
	for id := uint32(0); id <= 0x7FF; id += 7 {
		agg.RecordFrame(classified(id))
	}

	s := agg.Snapshot()
	var catSum, nodeSum uint64
	for _, n := range s.Categories {
		catSum += n
	}
	for _, n := range s.Nodes {
		nodeSum += n
	}
	assert.Equal(t, s.TotalFrames, catSum)
	assert.LessOrEqual(t, nodeSum, s.TotalFrames)
}

func TestAggregator_Errors(t *testing.T) {
	agg := NewAggregator()
	agg.RecordError(protocol.KindNoData)
	agg.RecordError(protocol.KindBadMagic)
	agg.RecordError(protocol.KindBadMagic)
	agg.RecordError(protocol.KindTruncatedRecord)

	s := agg.Snapshot()
	assert.Equal(t, uint64(3), s.Errors)
	assert.Equal(t, uint64(2), s.ErrorsByKind["bad_magic"])
	assert.Equal(t, uint64(1), s.ErrorsByKind["truncated_record"])
	assert.NotContains(t, s.ErrorsByKind, "no_data")
}

func TestAggregator_Rate(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	agg := newAggregatorWithClock(clock.now)

	assert.Zero(t, agg.Snapshot().Rate(), "rate before start")

	agg.Start()
	agg.RecordFrame(classified(0x181))
	assert.Zero(t, agg.Snapshot().Rate(), "rate with zero elapsed time")

	for i := 0; i < 19; i++ {
		agg.RecordFrame(classified(0x181))
	}
	clock.t = clock.t.Add(4 * time.Second)

	s := agg.Snapshot()
	assert.Equal(t, 4*time.Second, s.Elapsed)
	assert.InDelta(t, 5.0, s.Rate(), 1e-9)

	// A second Start must not move the window
	agg.Start()
	assert.Equal(t, time.Unix(1000, 0), agg.Snapshot().StartTime)
}

func TestAggregator_SnapshotIsCopy(t *testing.T) {
	agg := NewAggregator()
	agg.RecordFrame(classified(0x181))

	s := agg.Snapshot()
	s.Categories[protocol.CategoryPDO1TX] = 99
	s.Nodes[1] = 99

	again := agg.Snapshot()
	assert.Equal(t, uint64(1), again.Categories[protocol.CategoryPDO1TX])
	assert.Equal(t, uint64(1), again.Nodes[1])
}

func TestSnapshot_Sorted(t *testing.T) {
	agg := NewAggregator()
	for _, id := range []uint32{0x705, 0x181, 0x182, 0x181, 0x000} {
		agg.RecordFrame(classified(id))
	}
	s := agg.Snapshot()

	cats := s.SortedCategories()
	require.Len(t, cats, 3)
	assert.Equal(t, protocol.CategoryHeartbeat, cats[0].Category)
	assert.Equal(t, protocol.CategoryNMT, cats[1].Category)
	assert.Equal(t, protocol.CategoryPDO1TX, cats[2].Category)
	assert.Equal(t, uint64(3), cats[2].Count)

	nodes := s.SortedNodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, []uint8{1, 2, 5}, []uint8{nodes[0].Node, nodes[1].Node, nodes[2].Node})
	assert.InDelta(t, 40.0, s.Percent(nodes[0].Count), 1e-9)
}
