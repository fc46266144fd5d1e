package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pokegrid/relay/internal/bans"
	"github.com/pokegrid/relay/internal/creds"
	"github.com/pokegrid/relay/internal/httpx"
	"github.com/pokegrid/relay/internal/protocol"
)

var errMissingAuth = errors.New("relay: missing bearer token")

// authenticate extracts and looks up the bearer token from the
// Authorization header.
func (s *Server) authenticate(r *http.Request) (*creds.Metadata, error) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return nil, errMissingAuth
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	if token == "" {
		return nil, errMissingAuth
	}

	meta, ok, err := s.creds.Lookup(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("relay: unknown token")
	}
	return meta, nil
}

// recordInvalidRequest tracks a malformed/invalid request against ip for
// auto-escalation.
func (s *Server) recordInvalidRequest(ctx context.Context, ip string) {
	if err := s.bans.RecordViolation(ctx, bans.ViolationInvalidRequest, ip); err != nil {
		s.log.Warnw("record invalid request violation failed", "error", err, "ip", ip)
	}
}

// writeAuthError renders the standard 401 body for the given failure.
func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, errMissingAuth) {
		httpx.WriteJSON(w, http.StatusUnauthorized, protocol.APIError{
			Error: "missing or malformed Authorization header", Code: protocol.CodeMissingAuth,
		})
		return
	}
	httpx.WriteJSON(w, http.StatusUnauthorized, protocol.APIError{
		Error: "invalid token", Code: protocol.CodeInvalidAuth,
	})
}

func writeBanError(w http.ResponseWriter, decision bans.Decision) {
	status := http.StatusForbidden
	code := protocol.CodeBanned
	if decision.Mode == bans.ModeSoft {
		status = http.StatusTooManyRequests
		code = protocol.CodeSoftBanned
	}
	httpx.WriteJSON(w, status, protocol.APIError{
		Error: "banned", Code: code, Reason: decision.Reason, ExpiresAt: decision.ExpiresAt,
	})
}
