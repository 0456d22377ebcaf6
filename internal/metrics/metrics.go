package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ameua"

// Collector owns every metric the service exports. It is registered on an
// injected registry so tests can build as many as they need.
type Collector struct {
	gatherer prometheus.Gatherer

	// HTTP RED metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	signInAttempts   *prometheus.CounterVec
	resetRequests    prometheus.Counter
	notifierFailures *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
	tokensSwept      prometheus.Counter
}

// New registers the collector on reg. When reg is nil a fresh registry with
// the Go and process collectors is used.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		gatherer: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				// sign-in carries a fixed 2s delay, so the upper buckets matter
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),

		signInAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sign_in_attempts_total",
				Help:      "Sign-in attempts by result",
			},
			[]string{"result"}, // success, invalid_credentials, error
		),
		resetRequests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "password_reset_requests_total",
				Help:      "Password reset requests accepted",
			},
		),
		notifierFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifier_failures_total",
				Help:      "Email deliveries that failed",
			},
			[]string{"kind"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),
		tokensSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "expired_tokens_swept_total",
				Help:      "Expired verification tokens removed by the sweeper",
			},
		),
	}

	reg.MustRegister(
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.httpRequestsInFlight,
		c.signInAttempts,
		c.resetRequests,
		c.notifierFailures,
		c.rateLimited,
		c.tokensSwept,
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// ---- HTTP ----

func (c *Collector) RequestStarted() { c.httpRequestsInFlight.Inc() }
func (c *Collector) RequestDone()    { c.httpRequestsInFlight.Dec() }

func (c *Collector) ObserveRequest(method, path string, status int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ---- auth.Metrics ----

func (c *Collector) SignInAttempt(result string) {
	c.signInAttempts.WithLabelValues(result).Inc()
}

func (c *Collector) PasswordResetRequested() {
	c.resetRequests.Inc()
}

func (c *Collector) NotifierFailure(kind string) {
	c.notifierFailures.WithLabelValues(kind).Inc()
}

// ---- middleware / worker ----

func (c *Collector) RateLimited(scope string) {
	c.rateLimited.WithLabelValues(scope).Inc()
}

func (c *Collector) TokensSwept(n int64) {
	if n > 0 {
		c.tokensSwept.Add(float64(n))
	}
}
