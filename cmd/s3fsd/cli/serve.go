package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wushilin/rust-s3-server/pkg/objectstore"
	"github.com/wushilin/rust-s3-server/pkg/s3server"
)

const (
	TLS13       = "tls13"
	TLS12       = "tls12"
	TLS12STRONG = "tls12-strong"
)

// Serve sets up the storage root, the dispatcher, and a Listener, then
// blocks serving HTTP (or HTTPS) until a shutdown signal arrives.
func Serve() {
	root := objectstore.NewRootStore(Flags.BaseDir)
	if err := root.Initialize(); err != nil {
		stderr.Fatalf("Unable to initialize storage root %q: %s", Flags.BaseDir, err)
	}

	logger := NewRequestLogger(Flags.Verbose)
	server := s3server.NewServer(root, s3server.Config{
		PublicBaseURL:   Flags.PublicBaseURL,
		DebugAPIKey:     Flags.DebugAPIKey,
		MaxRequestBytes: Flags.MaxUploadSize,
		OnBytesWritten:  func(n int64) { MetricsBytesWrittenTotal.Add(float64(n)) },
		OnBytesRead:     func(n int64) { MetricsBytesReadTotal.Add(float64(n)) },
		OnPartMerged:    func() { MetricsMultipartPartsMergedTotal.Inc() },
	}, logger)

	mux := http.NewServeMux()
	if Flags.ShowGreeting {
		PrepareGreeting()
		stdout.Print(greeting)
	}
	mux.Handle("/", InstrumentRequests(server.Handler()))

	if Flags.ExposeMetrics {
		SetupMetrics(mux)
	}
	if Flags.ExposePprof {
		if Flags.DebugAPIKey == "" {
			stdout.Println("Warning: -expose-pprof is set but -debug-api-key is empty; the debug endpoint will refuse every request.")
		}
		SetupPprof(mux)
	}

	address := bindAddress()
	readTimeout := time.Duration(Flags.Timeout) * time.Millisecond
	writeTimeout := readTimeout

	var listener net.Listener
	var err error
	if Flags.HttpSock != "" {
		listener, err = NewUnixListener(Flags.HttpSock, readTimeout, writeTimeout)
	} else {
		listener, err = NewListener(address, readTimeout, writeTimeout)
	}
	if err != nil {
		stderr.Fatalf("Unable to create listener: %s", err)
	}

	protocol := "http"
	if Flags.TLSCertFile != "" && Flags.TLSKeyFile != "" {
		protocol = "https"
	}
	if Flags.HttpSock == "" {
		stdout.Printf("Listening for %s connections on %s, storing objects under %q\n", protocol, listener.Addr(), Flags.BaseDir)
	} else {
		stdout.Printf("Listening on UNIX socket %s, storing objects under %q\n", Flags.HttpSock, Flags.BaseDir)
	}

	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       readTimeout,
	}

	shutdownComplete := setupSignalHandler(httpServer)

	if protocol == "http" {
		err = httpServer.Serve(listener)
	} else {
		err = serveTLS(httpServer, listener)
	}

	if err == http.ErrServerClosed {
		<-shutdownComplete
	} else {
		stderr.Fatalf("Unable to serve: %s", err)
	}
}

func bindAddress() string {
	return Flags.HttpHost + ":" + Flags.HttpPort
}

func serveTLS(server *http.Server, listener net.Listener) error {
	switch Flags.TLSMode {
	case TLS13:
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS13}
	case TLS12:
		server.TLSConfig = &tls.Config{
			MinVersion:               tls.VersionTLS12,
			PreferServerCipherSuites: true,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
				tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			},
		}
	case TLS12STRONG:
		server.TLSConfig = &tls.Config{
			MinVersion:               tls.VersionTLS12,
			MaxVersion:               tls.VersionTLS12,
			PreferServerCipherSuites: true,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			},
		}
	default:
		stderr.Fatalf("Invalid TLS mode chosen. Recommended valid modes are tls13, tls12 (default), and tls12-strong")
	}

	server.TLSNextProto = make(map[string]func(*http.Server, *tls.Conn, http.Handler), 0)
	return server.ServeTLS(listener, Flags.TLSCertFile, Flags.TLSKeyFile)
}

func setupSignalHandler(server *http.Server) <-chan struct{} {
	shutdownComplete := make(chan struct{})

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		stdout.Println("Received interrupt signal. Shutting down s3fsd...")

		go func() {
			<-c
			stdout.Println("Received second interrupt signal. Exiting immediately!")
			os.Exit(1)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := server.Shutdown(ctx)
		if err == nil {
			stdout.Println("Shutdown completed. Goodbye!")
		} else if errors.Is(err, context.DeadlineExceeded) {
			stderr.Println("Shutdown timeout exceeded. Exiting immediately!")
		} else {
			stderr.Printf("Failed to shutdown gracefully: %s\n", err)
		}

		close(shutdownComplete)
	}()

	return shutdownComplete
}
