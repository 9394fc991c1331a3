package sstv

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for the transmit loop.
type Metrics struct {
	cycles          *prometheus.CounterVec   // Cycles by result: ok, acquisition, synthesis, delivery
	framesSent      prometheus.Counter       // KISS frames written
	bytesSent       prometheus.Counter       // Bytes on the wire after framing
	samples         prometheus.Counter       // Samples synthesized
	cycleDuration   *prometheus.HistogramVec // Whole cycle wall time, by sink
	lastSuccessTime prometheus.Gauge         // Unix time of the last completed transmission

	gatherer prometheus.Gatherer
}

// NewMetrics registers on reg.  A nil reg gets a private registry so tests
// and one-shot tools never collide with the process default.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	var factory = promauto.With(reg)

	return &Metrics{
		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sstv_cycles_total",
				Help: "Transmit cycles by result",
			},
			[]string{"result"},
		),
		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "sstv_frames_sent_total",
			Help: "KISS frames written to the TNC",
		}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "sstv_bytes_sent_total",
			Help: "Bytes written to the delivery device after framing",
		}),
		samples: factory.NewCounter(prometheus.CounterOpts{
			Name: "sstv_samples_synthesized_total",
			Help: "Audio samples produced by the synthesizer",
		}),
		cycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sstv_cycle_duration_seconds",
				Help:    "Wall time of a transmit cycle",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"sink"},
		),
		lastSuccessTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sstv_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful transmission",
		}),
		gatherer: reg,
	}
}

func (m *Metrics) observeCycle(result string, sink string, d time.Duration) {
	if m == nil {
		return
	}

	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.WithLabelValues(sink).Observe(d.Seconds())

	if result == cycleResultOK {
		m.lastSuccessTime.SetToCurrentTime()
	}
}

func (m *Metrics) observeTransmit(stats TransmitStats, samples int) {
	if m == nil {
		return
	}

	m.samples.Add(float64(samples))
	m.framesSent.Add(float64(stats.Frames))
	m.bytesSent.Add(float64(stats.WireLen))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}) //nolint:exhaustruct
}
