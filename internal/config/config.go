// Package config parses environment and flags shared by cmd/relay and
// cmd/backend: a cobra+viper+pflag wiring idiom with flags taking
// precedence over environment variables under the PGR_ prefix.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// TrustProxy selects which header (if any) is trusted for the client IP.
// Proxy-IP trust is an explicit deployment decision, never inferred from
// request headers at runtime.
type TrustProxy string

const (
	TrustProxyNone       TrustProxy = "none"
	TrustProxyCloudflare TrustProxy = "cloudflare"
	TrustProxyAny        TrustProxy = "any"
)

// Config holds every setting shared by both binaries; fields irrelevant
// to a given mode are simply unused (e.g. RelayURL only matters to
// cmd/backend; RelaySecret is sent by cmd/backend and checked by cmd/relay).
type Config struct {
	Bind string
	Port int

	KVURL string

	TickIntervalMS int

	RelayURL    string
	RelaySecret string
	GameID      string

	RegistrationSecret string
	AdminSecret        string

	TrustProxy TrustProxy

	RateLimitViolationThreshold int
	InvalidRequestThreshold     int

	TLSCert string
	TLSKey  string

	Verbose bool
	Profile bool
}

func (c *Config) Validate() error {
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.TickIntervalMS < 1000 || c.TickIntervalMS > 60000 {
		return fmt.Errorf("tick interval must be between 1000-60000ms inclusive: %d", c.TickIntervalMS)
	}
	if len(c.AdminSecret) < 16 {
		return errors.New("admin secret must be at least 16 characters")
	}
	if len(c.RelaySecret) < 16 {
		return errors.New("relay secret must be at least 16 characters")
	}
	switch c.TrustProxy {
	case TrustProxyNone, TrustProxyCloudflare, TrustProxyAny:
	default:
		return fmt.Errorf("invalid trust-proxy mode: %s", c.TrustProxy)
	}
	return nil
}

func (c *Config) Scheme() string {
	if c.TLSCert != "" && c.TLSKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// bindFlags wires pflag/viper/env so that flags take precedence, then
// env (PGR_*), then the flag default.
func bindFlags(cmd *cobra.Command, envPrefix string) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// RegisterCommon adds the flags shared by both binaries to cmd, backed by
// cfg, using the PGR_ environment prefix.
func RegisterCommon(cmd *cobra.Command, cfg *Config) {
	fs := cmd.Flags()

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: PGR_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: PGR_PORT)")
	fs.StringVar(&cfg.KVURL, "kv-url", "redis://127.0.0.1:6379/0", "KV/pub-sub connection URL (env: PGR_KV_URL)")
	fs.IntVar(&cfg.TickIntervalMS, "tick-interval-ms", 15000, "tick interval in ms, 1000-60000 (env: PGR_TICK_INTERVAL_MS)")
	fs.StringVar(&cfg.RelayURL, "relay-url", "ws://127.0.0.1:8080/home/connect", "relay WebSocket URL for the home client (env: PGR_RELAY_URL)")
	fs.StringVar(&cfg.RelaySecret, "relay-secret", "", "shared secret authenticating the home client, >=16 chars (env: PGR_RELAY_SECRET)")
	fs.StringVar(&cfg.GameID, "game-id", "red-1", "the backend's game id, used on the home websocket and in cached state lookups (env: PGR_GAME_ID)")
	fs.StringVar(&cfg.RegistrationSecret, "registration-secret", "", "optional gate on POST /api/v1/register (env: PGR_REGISTRATION_SECRET)")
	fs.StringVar(&cfg.AdminSecret, "admin-secret", "", "admin API secret, >=16 chars (env: PGR_ADMIN_SECRET)")
	fs.StringVar((*string)(&cfg.TrustProxy), "trust-proxy", string(TrustProxyNone), "none|cloudflare|any (env: PGR_TRUST_PROXY)")
	fs.IntVar(&cfg.RateLimitViolationThreshold, "rate-limit-violation-threshold", 10, "violations in 5m before an agent soft ban (env: PGR_RATE_LIMIT_VIOLATION_THRESHOLD)")
	fs.IntVar(&cfg.InvalidRequestThreshold, "invalid-request-threshold", 20, "invalid requests in 5m before an IP hard ban (env: PGR_INVALID_REQUEST_THRESHOLD)")
	fs.StringVar(&cfg.TLSCert, "tls-cert", "", "path to tls certificate (env: PGR_TLS_CERT)")
	fs.StringVar(&cfg.TLSKey, "tls-key", "", "path to tls keyfile (env: PGR_TLS_KEY)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: PGR_VERBOSE)")
	fs.BoolVar(&cfg.Profile, "profile", false, "register net/http/pprof handlers (env: PGR_PROFILE)")

	bindFlags(cmd, "PGR")
}
