// Package metrics собирает метрики сервиса для Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics содержит коллекторы сервиса и собственный реестр.
type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mailSent        *prometheus.CounterVec
	mailAttempts    *prometheus.HistogramVec
	sellerEvents    *prometheus.CounterVec
}

// New создаёт и регистрирует коллекторы.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		mailSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mail_messages_total",
				Help: "Transactional emails by kind and outcome.",
			},
			[]string{"kind", "result"},
		),
		mailAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mail_delivery_attempts",
				Help:    "Delivery attempts spent per email.",
				Buckets: []float64{1, 2, 3},
			},
			[]string{"kind"},
		),
		sellerEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seller_lifecycle_transitions_total",
				Help: "Seller lifecycle transitions by target state.",
			},
			[]string{"transition"},
		),
	}

	m.registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.mailSent,
		m.mailAttempts,
		m.sellerEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRequest учитывает обработанный HTTP-запрос.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestCount.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveMail учитывает итог отправки письма.
func (m *Metrics) ObserveMail(kind, result string, attempts int) {
	m.mailSent.WithLabelValues(kind, result).Inc()
	if attempts > 0 {
		m.mailAttempts.WithLabelValues(kind).Observe(float64(attempts))
	}
}

// ObserveTransition учитывает переход продавца в новое состояние.
func (m *Metrics) ObserveTransition(transition string) {
	m.sellerEvents.WithLabelValues(transition).Inc()
}

// Registry возвращает реестр коллекторов.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
