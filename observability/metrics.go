package observability

import (
	"chat-room/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the room counters exposed on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	onlineConnections   prometheus.Gauge
	messagesStored      *prometheus.CounterVec
	deliveryFailures    prometheus.Counter
	identityRejections  prometheus.Counter
	malformedMessages   prometheus.Counter
	storageFailures     prometheus.Counter
	rateLimitedMessages prometheus.Counter
	queueLength         *prometheus.GaugeVec
	queueCapacity       *prometheus.GaugeVec
	workerRestarts      *prometheus.CounterVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		onlineConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_online_connections",
			Help: "Number of live connections registered in the room.",
		}),
		messagesStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_stored_total",
			Help: "Messages durably appended, by kind.",
		}, []string{"kind"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_delivery_failures_total",
			Help: "Envelopes that could not be handed to a connection.",
		}),
		identityRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_identity_rejections_total",
			Help: "Connections rejected because of an unknown identity token.",
		}),
		malformedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_malformed_messages_total",
			Help: "Client payloads dropped because they failed to parse or validate.",
		}),
		storageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_storage_failures_total",
			Help: "Store operations that failed and were abandoned.",
		}),
		rateLimitedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_rate_limited_messages_total",
			Help: "Client payloads dropped by the per-connection rate limiter.",
		}),
		queueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chat_queue_length",
			Help: "Pending items in an internal queue, sampled periodically.",
		}, []string{"queue"}),
		queueCapacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chat_queue_capacity",
			Help: "Capacity of an internal queue.",
		}, []string{"queue"}),
		workerRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_worker_restarts_total",
			Help: "Supervised workers restarted after a panic or an error.",
		}, []string{"worker"}),
	}
	registerer.MustRegister(
		m.onlineConnections,
		m.messagesStored,
		m.deliveryFailures,
		m.identityRejections,
		m.malformedMessages,
		m.storageFailures,
		m.rateLimitedMessages,
		m.queueLength,
		m.queueCapacity,
		m.workerRestarts,
	)
	return m
}

func (m *Metrics) SetOnline(count int) {
	if m == nil {
		return
	}
	m.onlineConnections.Set(float64(count))
}

func (m *Metrics) MessageStored(kind domain.Kind) {
	if m == nil {
		return
	}
	m.messagesStored.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) DeliveryFailed() {
	if m == nil {
		return
	}
	m.deliveryFailures.Inc()
}

func (m *Metrics) IdentityRejected() {
	if m == nil {
		return
	}
	m.identityRejections.Inc()
}

func (m *Metrics) MalformedMessage() {
	if m == nil {
		return
	}
	m.malformedMessages.Inc()
}

func (m *Metrics) StorageFailed() {
	if m == nil {
		return
	}
	m.storageFailures.Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedMessages.Inc()
}

func (m *Metrics) QueueSampled(name string, length, capacity int) {
	if m == nil {
		return
	}
	m.queueLength.WithLabelValues(name).Set(float64(length))
	m.queueCapacity.WithLabelValues(name).Set(float64(capacity))
}

func (m *Metrics) WorkerRestarted(name string) {
	if m == nil {
		return
	}
	m.workerRestarts.WithLabelValues(name).Inc()
}
