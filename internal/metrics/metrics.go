package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_requests_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)

	// Token lifecycle metrics. Verification failures keep the
	// expired/invalid split here even though callers report both as the
	// same rejection.
	tokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of session tokens issued",
		},
	)

	tokenVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_verifications_total",
			Help: "Total number of token verifications",
		},
		[]string{"result"}, // ok, expired, invalid
	)

	authRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rejections_total",
			Help: "Total number of requests rejected by the auth gate",
		},
		[]string{"reason"}, // missing_token, invalid_token, forbidden
	)

	// Store metrics
	storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of user store operations",
		},
		[]string{"operation", "status"}, // insert/find/list/update/delete, success/failure/conflict/not_found
	)

	storeOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "User store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"operation"},
	)

	// Cache metrics
	cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of user cache operations",
		},
		[]string{"operation", "status"}, // get/set/del, hit/miss/success/failure
	)
)

// Init registers the metrics
func Init() error {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		tokensIssuedTotal,
		tokenVerificationsTotal,
		authRejectionsTotal,
		storeOperationsTotal,
		storeOperationDuration,
		cacheOperationsTotal,
	)

	return nil
}

// HTTPMetricsMiddleware records HTTP metrics
func HTTPMetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		method := c.Method()
		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		statusCode := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(duration)

		return err
	}
}

// RecordTokenIssued records a token issuance
func RecordTokenIssued() {
	tokensIssuedTotal.Inc()
}

// RecordTokenVerification records a token verification outcome
// (ok, expired or invalid)
func RecordTokenVerification(result string) {
	tokenVerificationsTotal.WithLabelValues(result).Inc()
}

// RecordAuthRejection records a request rejected by the auth gate
func RecordAuthRejection(reason string) {
	authRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordStoreOperation records a user store operation
func RecordStoreOperation(operation, status string, duration time.Duration) {
	storeOperationsTotal.WithLabelValues(operation, status).Inc()
	storeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheOperation records a user cache operation
func RecordCacheOperation(operation, status string) {
	cacheOperationsTotal.WithLabelValues(operation, status).Inc()
}

// PrometheusHandler returns the Prometheus metrics handler adapted to
// Fiber's fasthttp request model
func PrometheusHandler() fiber.Handler {
	promHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		promHandler(c.Context())
		return nil
	}
}
