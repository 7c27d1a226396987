package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_http_requests_total",
			Help: "Total number of HTTP requests by service, route, method and status",
		},
		[]string{"service", "route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "route", "method"},
	)

	// NotificationsTotal counts delivery attempts per channel and outcome.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_notifications_total",
			Help: "Total number of notification attempts by channel and result",
		},
		[]string{"channel", "result"},
	)

	DeadlineAlertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskboard_deadline_alerts_total",
			Help: "Total number of deadline alerts published",
		},
	)

	DeadlineScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskboard_deadline_scans_total",
			Help: "Total number of deadline scans by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(DeadlineAlertsTotal)
	prometheus.MustRegister(DeadlineScansTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result labels a success flag for the counters above.
func Result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency labelled with the matched
// route template, so path parameters do not explode cardinality.
func Middleware(service string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			HTTPRequestsTotal.WithLabelValues(service, route, r.Method, strconv.Itoa(rec.status)).Inc()
			HTTPRequestDuration.WithLabelValues(service, route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
