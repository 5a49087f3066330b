package health

import (
	"net/http"
	"sync/atomic"
)

var ready atomic.Bool

// SetReady flips the readiness gate; main clears it before shutdown and
// the feed clears it while the book is unsynced.
func SetReady(v bool) { ready.Store(v) }

// Ready reports the current readiness state.
func Ready() bool { return ready.Load() }

// Healthz is a liveness probe: the process is up.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz answers 200 only while the book is synced and serving.
func Readyz(w http.ResponseWriter, r *http.Request) {
	if !Ready() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
