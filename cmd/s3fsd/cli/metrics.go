package cli

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wushilin/rust-s3-server/pkg/s3server"
)

var MetricsOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "s3fsd_connections_open",
	Help: "Current number of open connections.",
})

var MetricsRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "s3fsd_requests_total",
	Help: "Total number of classified requests, by operation.",
}, []string{"op"})

var MetricsRequestErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "s3fsd_request_errors_total",
	Help: "Total number of failed requests, by operation and error kind.",
}, []string{"op", "kind"})

var MetricsBytesWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "s3fsd_bytes_written_total",
	Help: "Total bytes accepted into object bodies and multipart parts.",
})

var MetricsBytesReadTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "s3fsd_bytes_read_total",
	Help: "Total bytes streamed out in GetObject responses.",
})

var MetricsMultipartPartsMergedTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "s3fsd_multipart_parts_merged_total",
	Help: "Total number of multipart uploads successfully completed.",
})

func SetupMetrics(mux *http.ServeMux) {
	prometheus.MustRegister(
		MetricsOpenConnections,
		MetricsRequestsTotal,
		MetricsRequestErrorsTotal,
		MetricsBytesWrittenTotal,
		MetricsBytesReadTotal,
		MetricsMultipartPartsMergedTotal,
	)

	stdout.Printf("Using %s as the metrics path.\n", Flags.MetricsPath)
	mux.Handle(Flags.MetricsPath, promhttp.Handler())
}

// kindForStatus names an error kind for a response status, following the
// same status groupings the error handling design assigns to each kind
// (validation failures are "InvalidRequest"-equivalent, missing resources
// are not-found, auth failures on the debug endpoint are 403, everything
// else unexpected is an internal error).
func kindForStatus(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "NotFound"
	case status == http.StatusForbidden:
		return "Forbidden"
	case status == http.StatusConflict:
		return "BucketAlreadyExists"
	case status >= 400 && status < 500:
		return "InvalidRequest"
	case status >= 500:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// InstrumentRequests wraps handler, counting every request by the S3
// operation it classifies to and, for non-2xx responses, by error kind.
func InstrumentRequests(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, segments := s3server.SplitPath(r.URL.Path)
		op := s3server.Classify(r.Method, segments, r.URL.Query()).String()
		MetricsRequestsTotal.WithLabelValues(op).Inc()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler.ServeHTTP(rec, r)

		if rec.status >= 400 {
			MetricsRequestErrorsTotal.WithLabelValues(op, kindForStatus(rec.status)).Inc()
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
