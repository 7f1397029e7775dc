package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// RepositoryMetrics считает операции над заказами и публикацию событий.
type RepositoryMetrics struct {
	opDuration *prometheus.HistogramVec
	opTotal    *prometheus.CounterVec
	events     *prometheus.CounterVec
}

// NewRepositoryMetrics регистрирует коллекторы в registerer (nil — DefaultRegisterer).
func NewRepositoryMetrics(registerer prometheus.Registerer) *RepositoryMetrics {
	registerer = registererOrDefault(registerer)

	return &RepositoryMetrics{
		opDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repository_operation_duration_seconds",
			Help:      "Duration of order repository operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		opTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repository_operations_total",
			Help:      "Total number of order repository operations by outcome",
		}, []string{"operation", "outcome"}),
		events: registerCounterVec(registerer, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of order change events handed to the publisher",
		}, []string{"event_type", "outcome"}),
	}
}

// ObserveOperation записывает длительность операции и её исход.
// Исход — "ok" или вид ошибки из domain.ErrorKind.
func (m *RepositoryMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.opTotal.WithLabelValues(operation, domain.ErrorKind(err)).Inc()
}

// RecordEventPublished учитывает попытку публикации события.
func (m *RepositoryMetrics) RecordEventPublished(eventType domain.OrderEventType, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.events.WithLabelValues(string(eventType), outcome).Inc()
}
