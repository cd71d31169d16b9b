package httpapi

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	logins    prometheus.Counter
	refreshes prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and route pattern.",
		}, []string{"method", "route"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "http_errors_total",
			Help:      "HTTP error responses by status code.",
		}, []string{"status"}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "logins_total",
			Help:      "Successful logins.",
		}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "token_refreshes_total",
			Help:      "Successful access token refreshes.",
		}),
	}

	reg.MustRegister(m.requests, m.errors, m.logins, m.refreshes)
	return m
}

func (m *metrics) observeRequest(method, route string) {
	m.requests.WithLabelValues(method, route).Inc()
}

func (m *metrics) observeError(status int) {
	m.errors.WithLabelValues(strconv.Itoa(status)).Inc()
}
