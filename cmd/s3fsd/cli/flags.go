package cli

import "flag"

// Flags holds every command-line option for the server, populated once by
// ParseFlags.
var Flags struct {
	BaseDir       string
	HttpHost      string
	HttpPort      string
	HttpSock      string
	MaxUploadSize int64
	Timeout       int64

	TLSCertFile string
	TLSKeyFile  string
	TLSMode     string

	ExposeMetrics bool
	MetricsPath   string
	ExposePprof   bool
	PprofPath     string
	DebugAPIKey   string

	PublicBaseURL string

	ShowGreeting bool
	Verbose      bool
	ShowVersion  bool
}

func ParseFlags() {
	flag.StringVar(&Flags.BaseDir, "base-dir", "./s3fsd-data", "Directory used as the storage root for all buckets")
	flag.StringVar(&Flags.HttpHost, "host", "0.0.0.0", "Host to bind the HTTP server to")
	flag.StringVar(&Flags.HttpPort, "port", "8000", "Port to bind the HTTP server to")
	flag.StringVar(&Flags.HttpSock, "unix-sock", "", "If set, listen on a UNIX socket at this path instead of a TCP socket")
	flag.Int64Var(&Flags.MaxUploadSize, "max-upload-size", 5<<30, "Maximum size in bytes of a single request body")
	flag.Int64Var(&Flags.Timeout, "timeout", 0, "Read/write timeout for connections in milliseconds. A zero value disables the timeout")

	flag.StringVar(&Flags.TLSCertFile, "tls-certificate", "", "Path to the file containing the x509 TLS certificate to use. The file should also contain any intermediate and CA certificates.")
	flag.StringVar(&Flags.TLSKeyFile, "tls-key", "", "Path to the file containing the key for the TLS certificate.")
	flag.StringVar(&Flags.TLSMode, "tls-mode", "tls12", "Which TLS mode to use; valid modes are tls13, tls12, and tls12-strong.")

	flag.BoolVar(&Flags.ExposeMetrics, "expose-metrics", true, "Expose Prometheus metrics about server usage")
	flag.StringVar(&Flags.MetricsPath, "metrics-path", "/metrics", "Path under which the metrics endpoint is accessible")
	flag.BoolVar(&Flags.ExposePprof, "expose-pprof", false, "Expose the debug/profiling endpoint (still gated by -debug-api-key)")
	flag.StringVar(&Flags.PprofPath, "pprof-path", "/debug/", "Path prefix under which the profiling endpoint is mounted")
	flag.StringVar(&Flags.DebugAPIKey, "debug-api-key", "", "Value compared against the x-api-key header to authorize the debug endpoint. Empty disables it entirely.")

	flag.StringVar(&Flags.PublicBaseURL, "public-base-url", "http://127.0.0.1:8000", "Scheme and host used to build the Location element of multipart completion responses")

	flag.BoolVar(&Flags.ShowGreeting, "show-greeting", true, "Print the greeting banner to stdout at startup")
	flag.BoolVar(&Flags.Verbose, "verbose", true, "Enable verbose logging output")
	flag.BoolVar(&Flags.ShowVersion, "version", false, "Print version information and exit")

	flag.Parse()
}
