package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by the counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all Prometheus collectors for the toolkit.
type Metrics struct {
	// Key derivation
	KeyDerivationDuration *prometheus.HistogramVec

	// Messaging
	MessagesTotal *prometheus.CounterVec

	// Steganography
	StegoOperationsTotal *prometheus.CounterVec
	StegoEmbeddedBits    prometheus.Histogram

	// Read-once ratchet
	RatchetTransitionsTotal *prometheus.CounterVec

	// Directory persistence
	DirectoryWritesTotal *prometheus.CounterVec

	// Session lifecycle
	SessionEventsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		KeyDerivationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "passlok_key_derivation_seconds",
				Help:    "scrypt stretching latency by cost exponent",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"iterations"},
		),

		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passlok_messages_total",
				Help: "Messages encrypted or decrypted by mode and outcome",
			},
			[]string{"operation", "mode", "outcome"},
		),

		StegoOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passlok_stego_operations_total",
				Help: "Hide and reveal operations by carrier format and outcome",
			},
			[]string{"operation", "format", "outcome"},
		),

		StegoEmbeddedBits: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "passlok_stego_embedded_bits",
				Help:    "Size of payloads hidden in carriers",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
		),

		RatchetTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passlok_ratchet_transitions_total",
				Help: "Read-once ratchet steps by direction and message type",
			},
			[]string{"direction", "type"},
		),

		DirectoryWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passlok_directory_writes_total",
				Help: "Directory and host record writes by store and outcome",
			},
			[]string{"store", "outcome"},
		),

		SessionEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passlok_session_events_total",
				Help: "Session unlocks, manual locks and inactivity expiries",
			},
			[]string{"event"},
		),
	}
}

// Default is registered with the process-wide Prometheus registry.
var Default = New(prometheus.DefaultRegisterer)

// ObserveKeyDerivation records one stretching run.
func (m *Metrics) ObserveKeyDerivation(iterations int, elapsed time.Duration) {
	m.KeyDerivationDuration.WithLabelValues(strconv.Itoa(iterations)).Observe(elapsed.Seconds())
}

// CountMessage records an encrypt or decrypt attempt.
func (m *Metrics) CountMessage(operation, mode string, err error) {
	m.MessagesTotal.WithLabelValues(operation, mode, outcome(err)).Inc()
}

// CountStego records a hide or reveal attempt.
func (m *Metrics) CountStego(operation, format string, err error) {
	m.StegoOperationsTotal.WithLabelValues(operation, format, outcome(err)).Inc()
}

// CountRatchet records a read-once send or receive step.
func (m *Metrics) CountRatchet(direction, msgType string) {
	m.RatchetTransitionsTotal.WithLabelValues(direction, msgType).Inc()
}

// CountDirectoryWrite records a persisted directory or host record update.
func (m *Metrics) CountDirectoryWrite(store string, err error) {
	m.DirectoryWritesTotal.WithLabelValues(store, outcome(err)).Inc()
}

// CountSession records a session lifecycle event.
func (m *Metrics) CountSession(event string) {
	m.SessionEventsTotal.WithLabelValues(event).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
