// Package creds implements the hashed-token credential store: agentId
// reservation, token issuance, lookup by presented token, and revocation.
package creds

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/pokegrid/relay/internal/kvstore"
)

// Plan is one of the three fixed subscription tiers.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanStandard Plan = "standard"
	PlanPremium  Plan = "premium"
)

// PlanLimits is the fixed rps/burst table for a subscription tier.
type PlanLimits struct {
	RPS   int
	Burst int
}

var planTable = map[Plan]PlanLimits{
	PlanFree:     {RPS: 5, Burst: 8},
	PlanStandard: {RPS: 20, Burst: 30},
	PlanPremium:  {RPS: 100, Burst: 150},
}

func (p Plan) Limits() PlanLimits {
	if l, ok := planTable[p]; ok {
		return l
	}
	return planTable[PlanFree]
}

// ErrAgentExists is returned by Register when agentId is already taken.
var ErrAgentExists = errors.New("creds: agent id already registered")

// agentIDPattern enforces the agentId shape: 3-64 chars, [A-Za-z0-9_-].
var agentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

// ValidAgentID reports whether id satisfies the agentId shape.
func ValidAgentID(id string) bool {
	return agentIDPattern.MatchString(id)
}

// Metadata is the persisted record for one credential.
type Metadata struct {
	AgentID   string `json:"agentId"`
	Plan      Plan   `json:"plan"`
	RPSLimit  int    `json:"rpsLimit"`
	Burst     int    `json:"-"`
	CreatedAt int64  `json:"createdAt"`
}

const (
	keyTokenDigest = "creds:token:" // + digest -> hash{agentId, plan, rps, burst, createdAt}
	keyAgentIndex  = "creds:agent:" // + "index" -> hash{agentId: digest}, reserved at registration
)

// Store implements lookup/register/revoke over a shared kvstore.Store.
type Store struct {
	kv kvstore.Store
}

func New(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

func digestOf(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Lookup hashes the presented token and fetches its metadata. Equality of
// the digest itself is inherent in the KV key lookup; ConstantTimeEqual
// applies to any additional secret comparison a caller performs (e.g.
// admin/relay secrets), not here, since a hash-keyed lookup already
// avoids timing on the raw token.
func (s *Store) Lookup(ctx context.Context, token string) (*Metadata, bool, error) {
	digest := digestOf(token)
	fields, err := s.kv.HGetAll(ctx, keyTokenDigest+digest)
	if err != nil {
		return nil, false, fmt.Errorf("creds: lookup: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	return metadataFromFields(fields), true, nil
}

// Register reserves agentId and issues a new token, shown only once; only
// its digest persists thereafter.
func (s *Store) Register(ctx context.Context, agentID string) (token string, meta *Metadata, err error) {
	if !ValidAgentID(agentID) {
		return "", nil, fmt.Errorf("creds: invalid agent id %q", agentID)
	}

	token, err = generateToken()
	if err != nil {
		return "", nil, fmt.Errorf("creds: generate token: %w", err)
	}
	digest := digestOf(token)

	reserved, err := s.kv.HSetNX(ctx, keyAgentIndex+"index", agentID, digest)
	if err != nil {
		return "", nil, fmt.Errorf("creds: reserve: %w", err)
	}
	if !reserved {
		return "", nil, ErrAgentExists
	}

	m := &Metadata{
		AgentID:   agentID,
		Plan:      PlanFree,
		RPSLimit:  PlanFree.Limits().RPS,
		Burst:     PlanFree.Limits().Burst,
		CreatedAt: time.Now().UnixMilli(),
	}

	for field, value := range fieldsFromMetadata(m) {
		if err := s.kv.HSet(ctx, keyTokenDigest+digest, field, value); err != nil {
			return "", nil, fmt.Errorf("creds: persist: %w", err)
		}
	}

	return token, m, nil
}

// Revoke deletes both the digest record and the agentId reservation.
func (s *Store) Revoke(ctx context.Context, agentID, digest string) error {
	if err := s.kv.Del(ctx, keyTokenDigest+digest); err != nil {
		return err
	}
	return s.kv.HDel(ctx, keyAgentIndex+"index", agentID)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "cgp_" + hex.EncodeToString(buf), nil
}

// ConstantTimeEqual compares two secrets without leaking timing
// information, used by the admin/home/registration secret checks.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func fieldsFromMetadata(m *Metadata) map[string]string {
	return map[string]string{
		"agentId":   m.AgentID,
		"plan":      string(m.Plan),
		"rps":       strconv.Itoa(m.RPSLimit),
		"burst":     strconv.Itoa(m.Burst),
		"createdAt": strconv.FormatInt(m.CreatedAt, 10),
	}
}

func metadataFromFields(f map[string]string) *Metadata {
	plan := Plan(f["plan"])
	rps, _ := strconv.Atoi(f["rps"])
	burst, _ := strconv.Atoi(f["burst"])
	createdAt, _ := strconv.ParseInt(f["createdAt"], 10, 64)
	return &Metadata{
		AgentID:   f["agentId"],
		Plan:      plan,
		RPSLimit:  rps,
		Burst:     burst,
		CreatedAt: createdAt,
	}
}
