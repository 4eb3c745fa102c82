package monitor

import (
	"fmt"
	"io"

	"github.com/muurk/canmon/internal/protocol"
	"github.com/muurk/canmon/internal/stats"
)

// WriteReport writes a human-readable statistics report
func WriteReport(w io.Writer, s stats.Snapshot) error {
	ew := &errWriter{w: w}

	ew.printf("\n=== CANopen Monitor Statistics ===\n")
	ew.printf("Runtime:      %.1fs\n", s.Elapsed.Seconds())
	ew.printf("Packets:      %d\n", s.TotalPackets)
	ew.printf("Frames:       %d\n", s.TotalFrames)
	ew.printf("Rate:         %.1f msg/s\n", s.Rate())
	ew.printf("Errors:       %d\n", s.Errors)
	for _, kind := range protocol.ErrorKinds() {
		if n := s.ErrorsByKind[kind.String()]; n > 0 {
			ew.printf("  %-18s %6d\n", kind.String()+":", n)
		}
	}

	ew.printf("\nMessage types:\n")
	for _, c := range s.SortedCategories() {
		ew.printf("  %-12s: %6d (%5.1f%%)\n", c.Category, c.Count, s.Percent(c.Count))
	}

	ew.printf("\nNode activity:\n")
	for _, n := range s.SortedNodes() {
		ew.printf("  Node %3d: %6d (%5.1f%%)\n", n.Node, n.Count, s.Percent(n.Count))
	}
	ew.printf("\n")

	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
