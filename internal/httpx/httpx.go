// Package httpx holds HTTP plumbing shared by the relay and admin surfaces:
// security headers, client-IP resolution per the configured proxy-trust
// mode, pprof registration, and JSON/Retry-After response helpers.
package httpx

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/pokegrid/relay/internal/config"
)

// SecurityHeaders applies a consistent security-header baseline to every
// response, plus HSTS when serving over TLS.
func SecurityHeaders(cfg *config.Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'")

	if cfg.Scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

// ClientIP resolves the caller's IP: with TrustProxy == cloudflare,
// CF-Connecting-IP; with any, the first hop of X-Forwarded-For; with
// none, the raw transport peer address. The decision is made purely from
// cfg, never inferred from which headers happen to be present.
func ClientIP(cfg *config.Config, r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	switch cfg.TrustProxy {
	case config.TrustProxyCloudflare:
		if ip := r.Header.Get("CF-Connecting-IP"); ip != "" && net.ParseIP(ip) != nil {
			return ip
		}
	case config.TrustProxyAny:
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
	}

	return host
}

// RegisterProfile registers net/http/pprof handlers under prefix when
// cfg.Profile is set.
func RegisterProfile(cfg *config.Config, prefix string, mux *httprouter.Router) {
	if !cfg.Profile {
		return
	}

	mux.Handler("GET", prefix+"/pprof/allocs", pprof.Handler("allocs"))
	mux.Handler("GET", prefix+"/pprof/block", pprof.Handler("block"))
	mux.Handler("GET", prefix+"/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handler("GET", prefix+"/pprof/heap", pprof.Handler("heap"))
	mux.Handler("GET", prefix+"/pprof/mutex", pprof.Handler("mutex"))
	mux.Handler("GET", prefix+"/pprof/threadcreate", pprof.Handler("threadcreate"))
	mux.HandlerFunc("GET", prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", prefix+"/pprof/trace", pprof.Trace)
}

// WriteJSON writes body as a JSON response with the given status, applying
// the standard content type. Used for both error and success bodies.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// SetRetryAfter sets the Retry-After header (whole seconds), required on
// every 429 response.
func SetRetryAfter(w http.ResponseWriter, seconds int) {
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
}
