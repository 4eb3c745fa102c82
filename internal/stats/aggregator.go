package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/muurk/canmon/internal/protocol"
)

// Snapshot is a point-in-time copy of the aggregate counters
type Snapshot struct {
	StartTime    time.Time                    `json:"start_time"`
	Elapsed      time.Duration                `json:"elapsed_ns"`
	TotalPackets uint64                       `json:"total_packets"`
	TotalFrames  uint64                       `json:"total_frames"`
	Errors       uint64                       `json:"errors"`
	ErrorsByKind map[string]uint64            `json:"errors_by_kind"`
	Categories   map[protocol.Category]uint64 `json:"categories"`
	Nodes        map[uint8]uint64             `json:"nodes"`
}

// Rate returns decoded frames per second since the aggregator started.
// It is zero when no time has elapsed.
func (s Snapshot) Rate() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.TotalFrames) / secs
}

// Percent returns count as a percentage of all decoded frames
func (s Snapshot) Percent(count uint64) float64 {
	if s.TotalFrames == 0 {
		return 0
	}
	return float64(count) / float64(s.TotalFrames) * 100
}

// CategoryCount is one row of a per-category breakdown
type CategoryCount struct {
	Category protocol.Category
	Count    uint64
}

// NodeCount is one row of a per-node breakdown
type NodeCount struct {
	Node  uint8
	Count uint64
}

// SortedCategories returns non-zero category counts in category name order
func (s Snapshot) SortedCategories() []CategoryCount {
	out := make([]CategoryCount, 0, len(s.Categories))
	for c, n := range s.Categories {
		out = append(out, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Category.String() < out[j].Category.String()
	})
	return out
}

// SortedNodes returns node counts in ascending node order
func (s Snapshot) SortedNodes() []NodeCount {
	out := make([]NodeCount, 0, len(s.Nodes))
	for n, c := range s.Nodes {
		out = append(out, NodeCount{Node: n, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Node < out[j].Node })
	return out
}

// Aggregator accumulates traffic statistics
type Aggregator struct {
	mu           sync.Mutex
	now          func() time.Time
	start        time.Time
	started      bool
	totalPackets uint64
	totalFrames  uint64
	errors       uint64
	errorsByKind map[protocol.ErrorKind]uint64
	categories   map[protocol.Category]uint64
	nodes        map[uint8]uint64
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return newAggregatorWithClock(time.Now)
}

func newAggregatorWithClock(now func() time.Time) *Aggregator {
	return &Aggregator{
		now:          now,
		errorsByKind: make(map[protocol.ErrorKind]uint64),
		categories:   make(map[protocol.Category]uint64),
		nodes:        make(map[uint8]uint64),
	}
}

// Start marks the beginning of the measurement window. Only the first call
// has an effect.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		a.start = a.now()
		a.started = true
	}
}

// RecordPacket counts an accepted packet
func (a *Aggregator) RecordPacket() {
	a.mu.Lock()
	a.totalPackets++
	a.mu.Unlock()
}

// RecordFrame counts a decoded frame against its category and node
func (a *Aggregator) RecordFrame(cf protocol.ClassifiedFrame) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalFrames++
	a.categories[cf.Category]++
	if cf.Node != 0 {
		a.nodes[cf.Node]++
	}
}

// RecordError counts a failed packet attempt. NoData is not an error and
// is ignored.
func (a *Aggregator) RecordError(kind protocol.ErrorKind) {
	if kind == protocol.KindNoData {
		return
	}
	a.mu.Lock()
	a.errors++
	a.errorsByKind[kind]++
	a.mu.Unlock()
}

// Snapshot returns a copy of the current counters without resetting them
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		StartTime:    a.start,
		TotalPackets: a.totalPackets,
		TotalFrames:  a.totalFrames,
		Errors:       a.errors,
		ErrorsByKind: make(map[string]uint64, len(a.errorsByKind)),
		Categories:   make(map[protocol.Category]uint64, len(a.categories)),
		Nodes:        make(map[uint8]uint64, len(a.nodes)),
	}
	if a.started {
		s.Elapsed = a.now().Sub(a.start)
	}
	for k, v := range a.errorsByKind {
		s.ErrorsByKind[k.String()] = v
	}
	for k, v := range a.categories {
		s.Categories[k] = v
	}
	for k, v := range a.nodes {
		s.Nodes[k] = v
	}
	return s
}
