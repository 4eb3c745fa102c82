// Package metrics exports monitor counters in the Prometheus exposition format.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muurk/canmon/internal/protocol"
)

const namespace = "canmon"

// Exporter turns monitor events into Prometheus metrics. It owns its
// registry so several exporters can coexist in one process.
type Exporter struct {
	registry *prometheus.Registry

	packets       prometheus.Counter
	packetRecords prometheus.Histogram
	frames        *prometheus.CounterVec
	nodeFrames    *prometheus.CounterVec
	errors        *prometheus.CounterVec
	lastTimestamp prometheus.Gauge
}

// NewExporter creates an exporter with every error kind and category
// pre-initialised at zero
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		packets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deframer",
			Name:      "packets_total",
			Help:      "Packets accepted by the deframer.",
		}),
		packetRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "deframer",
			Name:      "packet_records",
			Help:      "Records carried per accepted packet.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256},
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "frames_total",
			Help:      "Decoded frames by message category.",
		}, []string{"category"}),
		nodeFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "node_frames_total",
			Help:      "Decoded frames by addressed node.",
		}, []string{"node"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deframer",
			Name:      "errors_total",
			Help:      "Abandoned packet attempts by error kind.",
		}, []string{"kind"}),
		lastTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "last_frame_timestamp_seconds",
			Help:      "Device timestamp of the most recent frame.",
		}),
	}

	for _, kind := range protocol.ErrorKinds() {
		e.errors.WithLabelValues(kind.String())
	}
	for _, c := range protocol.Categories() {
		e.frames.WithLabelValues(c.String())
	}

	e.registry.MustRegister(
		e.packets,
		e.packetRecords,
		e.frames,
		e.nodeFrames,
		e.errors,
		e.lastTimestamp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return e
}

// OnPacket counts an accepted packet
func (e *Exporter) OnPacket(pkt *protocol.Packet) {
	e.packets.Inc()
	e.packetRecords.Observe(float64(len(pkt.Frames)))
}

// OnFrame counts a decoded frame
func (e *Exporter) OnFrame(cf protocol.ClassifiedFrame) {
	e.frames.WithLabelValues(cf.Category.String()).Inc()
	if cf.Node != 0 {
		e.nodeFrames.WithLabelValues(strconv.Itoa(int(cf.Node))).Inc()
	}
	e.lastTimestamp.Set(float64(cf.Timestamp) / 1e6)
}

// OnError counts a failed packet attempt
func (e *Exporter) OnError(err error) {
	kind, ok := protocol.KindOf(err)
	if !ok || kind == protocol.KindNoData {
		return
	}
	e.errors.WithLabelValues(kind.String()).Inc()
}

// Registry returns the exporter's registry
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry over HTTP
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
