package cli

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/bmizerany/pat"
	"github.com/felixge/fgprof"
)

// SetupPprof mounts Go's standard profiling surface plus fgprof under
// Flags.PprofPath, gated by the same x-api-key header check the debug
// "backdoor" endpoint uses, rather than basic auth, since the header
// comparison is the guard this domain's debug endpoint already specifies.
func SetupPprof(globalMux *http.ServeMux) {
	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)

	mux := pat.New()
	mux.Get("", http.HandlerFunc(pprof.Index))
	mux.Get("cmdline", http.HandlerFunc(pprof.Cmdline))
	mux.Get("profile", http.HandlerFunc(pprof.Profile))
	mux.Get("symbol", http.HandlerFunc(pprof.Symbol))
	mux.Get("trace", http.HandlerFunc(pprof.Trace))
	mux.Get("fgprof", fgprof.Handler())

	guarded := requireAPIKey(mux)
	globalMux.Handle(Flags.PprofPath, http.StripPrefix(Flags.PprofPath, guarded))
}

func requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get("x-api-key")
		if Flags.DebugAPIKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(Flags.DebugAPIKey)) != 1 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
