// Package relay is the always-on service agents and the single home
// client connect to — REST endpoints for registration/voting/state, an
// agent-facing WebSocket broadcasting state_update, and the home-facing
// WebSocket carrying vote_batch/heartbeat/state_push.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/pokegrid/relay/internal/bans"
	"github.com/pokegrid/relay/internal/config"
	"github.com/pokegrid/relay/internal/creds"
	"github.com/pokegrid/relay/internal/gamestate"
	"github.com/pokegrid/relay/internal/httpx"
	"github.com/pokegrid/relay/internal/kvstore"
	"github.com/pokegrid/relay/internal/ratelimit"
	"github.com/pokegrid/relay/internal/votes"
)

const readWriteTimeout = 10 * time.Second

// Server wires the REST and WebSocket surfaces over shared state.
type Server struct {
	cfg *config.Config
	log *zap.SugaredLogger

	kv    kvstore.Store
	creds *creds.Store
	bans  *bans.Registry
	limit *ratelimit.Limiter
	votes *votes.Aggregator
	games *gamestate.Service
	guard *ratelimit.LocalGuard

	agents *agentHub
	home   *homeRegistry
}

func New(cfg *config.Config, kv kvstore.Store, log *zap.SugaredLogger) *Server {
	credStore := creds.New(kv)
	banRegistry := bans.New(kv, cfg.RateLimitViolationThreshold, cfg.InvalidRequestThreshold)
	limiter := ratelimit.New(kv)
	voteAgg := votes.New(kv)
	games := gamestate.New(credStore, banRegistry, limiter, voteAgg)

	return &Server{
		cfg:    cfg,
		log:    log,
		kv:     kv,
		creds:  credStore,
		bans:   banRegistry,
		limit:  limiter,
		votes:  voteAgg,
		games:  games,
		guard:  ratelimit.NewLocalGuard(50, 100),
		agents: newAgentHub(),
		home:   newHomeRegistry(),
	}
}

// Run wires the router and serves until ctx is cancelled, with a graceful
// shutdown using a 5s drain window.
func (s *Server) Run(ctx context.Context) error {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, _ any) {
		httpx.SecurityHeaders(s.cfg, w)
		httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	mux.GET("/health", s.handleHealth)
	mux.GET("/version", s.handleVersion)

	mux.POST("/api/v1/register", s.handleRegister)
	mux.POST("/api/v1/vote", s.handleVote)
	mux.GET("/api/v1/state", s.handleGetState)
	mux.GET("/api/v1/ratelimit", s.handleGetRateLimit)
	mux.GET("/api/v1/history", s.handleGetHistory)

	mux.GET("/agent/stream", s.handleAgentWS)
	mux.GET("/home/connect", s.handleHomeWS)

	mux.POST("/api/v1/admin/ban/:kind", s.handleAdminBan)
	mux.POST("/api/v1/admin/unban", s.handleAdminUnban)
	mux.GET("/api/v1/admin/bans", s.handleAdminListBans)

	httpx.RegisterProfile(s.cfg, "/debug", mux)

	srv := &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Bind, strconv.Itoa(s.cfg.Port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       readWriteTimeout,
		ReadHeaderTimeout: readWriteTimeout,
		WriteTimeout:      readWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("listening", "scheme", s.cfg.Scheme(), "addr", srv.Addr)

		var err error
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			err = srv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	s.startTickLoop(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httpx.SecurityHeaders(s.cfg, w)
	status := "ok"
	if err := s.kv.Ping(r.Context()); err != nil {
		status = "degraded"
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httpx.SecurityHeaders(s.cfg, w)
	fmt.Fprintln(w, "pokegrid-relay")
}
