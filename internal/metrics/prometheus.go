package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

const namespace = "assistant"

// Prometheus is a Sink backed by its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	conversationsCreated prometheus.Counter
	conversationsActive  prometheus.Gauge
	messagesProcessed    prometheus.Counter
	intentsDetected      *prometheus.CounterVec
	externalCalls        prometheus.Counter
	externalFailures     prometheus.Counter
	responseTime         *prometheus.HistogramVec
}

// Ensure Prometheus implements Sink interface.
var _ Sink = (*Prometheus)(nil)

// NewPrometheus creates the collectors and registers them on a fresh registry.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		conversationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_created_total",
			Help:      "Conversations created.",
		}),
		conversationsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversations_active",
			Help:      "Conversations currently ACTIVE.",
		}),
		messagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "User messages processed.",
		}),
		intentsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_detected_total",
			Help:      "Classified intents.",
		}, []string{"intent"}),
		externalCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_api_calls_total",
			Help:      "Calls made to the weather provider.",
		}),
		externalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_api_failures_total",
			Help:      "Failed calls to the weather provider.",
		}),
		responseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_time_seconds",
			Help:      "Turn processing latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
	}

	p.registry.MustRegister(
		p.conversationsCreated,
		p.conversationsActive,
		p.messagesProcessed,
		p.intentsDetected,
		p.externalCalls,
		p.externalFailures,
		p.responseTime,
		collectors.NewGoCollector(),
	)
	return p
}

func (p *Prometheus) ConversationCreated() {
	p.conversationsCreated.Inc()
	p.conversationsActive.Inc()
}

func (p *Prometheus) ConversationEnded() { p.conversationsActive.Dec() }

func (p *Prometheus) MessageProcessed() { p.messagesProcessed.Inc() }

func (p *Prometheus) IntentDetected(intent domain.Intent) {
	p.intentsDetected.WithLabelValues(string(intent)).Inc()
}

func (p *Prometheus) ExternalCall() { p.externalCalls.Inc() }

func (p *Prometheus) ExternalFailure() { p.externalFailures.Inc() }

func (p *Prometheus) ObserveLatency(intent domain.Intent, d time.Duration) {
	p.responseTime.WithLabelValues(string(intent)).Observe(d.Seconds())
}

func (p *Prometheus) SetActive(n int) { p.conversationsActive.Set(float64(n)) }

// Summary reads the current values back out of the collectors.
func (p *Prometheus) Summary() domain.MetricsSummary {
	return domain.MetricsSummary{
		ConversationsCreated: int64(read(p.conversationsCreated)),
		ConversationsActive:  int64(read(p.conversationsActive)),
		MessagesProcessed:    int64(read(p.messagesProcessed)),
		ExternalAPICalls:     int64(read(p.externalCalls)),
		ExternalAPIFailures:  int64(read(p.externalFailures)),
	}
}

// IntentCount returns how many times intent has been detected.
func (p *Prometheus) IntentCount(intent domain.Intent) int64 {
	return int64(read(p.intentsDetected.WithLabelValues(string(intent))))
}

// Handler exposes the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func read(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return 0
	}
	switch {
	case out.Counter != nil:
		return out.GetCounter().GetValue()
	case out.Gauge != nil:
		return out.GetGauge().GetValue()
	}
	return 0
}
