package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/surdiana/authd/internal/errors"
)

// ScopeAll is the ledger key that revokes every session of a user at once.
const ScopeAll = "all"

// RevocationService keeps the per-user revocation ledger: a JSON map from
// scope key ("all" or an access token jti) to the revocation timestamp in
// float seconds since the epoch. A token is revoked when an applicable entry
// carries a timestamp at or after the token's issuance baseline, which is
// reconstructed from the token's expiry minus its lifetime. The ledger entry
// lives exactly as long as the longest-lived token it could affect.
type RevocationService struct {
	ledger     KV
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewRevocationService(ledger KV, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *RevocationService {
	return &RevocationService{
		ledger:     ledger,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Revoke records a revocation for the user under the given scope key. Existing
// entries for other scopes are preserved; the same scope is overwritten with
// the newer timestamp. The whole map is rewritten with a fresh refresh-length
// TTL so no entry outlives the tokens it governs by less than that window.
//
// The read-modify-write is not atomic. Two concurrent revocations for the same
// user can lose one scope entry; the affected token stays usable until expiry,
// which matches the durability promise of the ledger (best effort between
// writes, exact within one).
func (s *RevocationService) Revoke(ctx context.Context, userID, scope string) error {
	entries, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	ts := float64(s.now().UTC().UnixNano()) / float64(time.Second)
	entries[scope] = strconv.FormatFloat(ts, 'f', 6, 64)

	raw, err := json.Marshal(entries)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if err := s.ledger.Set(ctx, userID, string(raw), s.refreshTTL); err != nil {
		return err
	}

	s.logger.Info("session revoked",
		zap.String("user_id", userID),
		zap.Bool("all_devices", scope == ScopeAll),
	)
	return nil
}

// IsRevoked decides whether the presented token has been invalidated. The
// baseline approximates the token's issuance instant: expiry minus the refresh
// lifetime for refresh tokens, expiry minus the access lifetime otherwise.
// An entry only counts when its timestamp is at or after that baseline, so
// tokens minted after a revocation pass untouched.
func (s *RevocationService) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	entries, err := s.load(ctx, claims.Subject)
	if err != nil {
		return false, err
	}
	if len(entries) == 0 {
		return false, nil
	}

	lifetime := s.accessTTL
	if claims.IsRefresh() {
		lifetime = s.refreshTTL
	}
	baseline := float64(claims.ExpiresAt.UnixNano())/float64(time.Second) - lifetime.Seconds()

	if s.applies(entries, ScopeAll, baseline) {
		return true, nil
	}

	// A refresh token is tied to the jti of the access token it was minted
	// with, so revoking one device kills both halves of the pair.
	scope := claims.ID
	if claims.IsRefresh() {
		scope = claims.RelatedAccessToken
	}
	return s.applies(entries, scope, baseline), nil
}

func (s *RevocationService) applies(entries map[string]string, scope string, baseline float64) bool {
	raw, ok := entries[scope]
	if !ok {
		return false
	}
	ts, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.logger.Error("malformed revocation timestamp",
			zap.String("scope", scope),
			zap.String("value", raw),
		)
		return false
	}
	return ts >= baseline
}

func (s *RevocationService) load(ctx context.Context, userID string) (map[string]string, error) {
	raw, found, err := s.ledger.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]string)
	if !found {
		return entries, nil
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return entries, nil
}
