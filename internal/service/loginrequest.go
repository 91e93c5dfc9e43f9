package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	apperrors "github.com/surdiana/authd/internal/errors"
)

// UserSnapshot is the frozen view of a user taken at password verification.
// The two-step login finalizes against this snapshot, not the live row, so a
// concurrent role or flag change between the steps does not leak into the
// tokens minted for this request.
type UserSnapshot struct {
	ID             string   `json:"id"`
	Login          string   `json:"login"`
	IsSuperuser    bool     `json:"is_superuser"`
	TotpSecret     string   `json:"totp_secret"`
	TotpActive     bool     `json:"totp_active"`
	TotpSync       bool     `json:"totp_sync"`
	RequiredFields []string `json:"required_fields"`
	Roles          []string `json:"roles"`
}

// LoginRequestService is the broker between the password step and the TOTP
// step. Pending requests live in their own store namespace under a random
// request id and expire after a short window; an expired or unknown id is
// indistinguishable from one that never existed.
type LoginRequestService struct {
	requests   KV
	users      UserStore
	history    HistoryStore
	tokens     *TokenService
	issuer     string
	requestTTL time.Duration
	logger     *zap.Logger
}

func NewLoginRequestService(
	requests KV,
	users UserStore,
	history HistoryStore,
	tokens *TokenService,
	issuer string,
	requestTTL time.Duration,
	logger *zap.Logger,
) *LoginRequestService {
	return &LoginRequestService{
		requests:   requests,
		users:      users,
		history:    history,
		tokens:     tokens,
		issuer:     issuer,
		requestTTL: requestTTL,
		logger:     logger,
	}
}

// NewRequestID mints an opaque identifier for a pending login.
func NewRequestID() string {
	return uuid.NewString()
}

// Store freezes the snapshot under the request id for the pending window.
func (s *LoginRequestService) Store(ctx context.Context, requestID string, snap UserSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return s.requests.Set(ctx, requestID, string(raw), s.requestTTL)
}

func (s *LoginRequestService) snapshot(ctx context.Context, requestID string) (UserSnapshot, error) {
	raw, found, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return UserSnapshot{}, err
	}
	if !found {
		return UserSnapshot{}, apperrors.ErrNotFound
	}
	var snap UserSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return UserSnapshot{}, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return snap, nil
}

// GenerateProvisioningURL creates a fresh TOTP secret for the pending user,
// persists it and returns the otpauth URL for the authenticator app. The
// secret is not active until ActivateTotp confirms a valid code.
func (s *LoginRequestService) GenerateProvisioningURL(ctx context.Context, requestID string) (string, error) {
	snap, err := s.snapshot(ctx, requestID)
	if err != nil {
		return "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: snap.Login,
	})
	if err != nil {
		return "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	userID, err := uuid.Parse(snap.ID)
	if err != nil {
		return "", apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if err := s.users.UpdateFields(ctx, userID, map[string]interface{}{
		"totp_secret": key.Secret(),
	}); err != nil {
		return "", err
	}

	s.logger.Info("totp secret provisioned", zap.String("user_id", snap.ID))
	return key.URL(), nil
}

// ActivateTotp confirms the first code against the freshly provisioned secret
// and flips the active and sync flags. The secret is read from the live row,
// not the snapshot, because provisioning happened after the snapshot was
// taken. A wrong code reads as not found.
func (s *LoginRequestService) ActivateTotp(ctx context.Context, requestID, code string) (TokenPair, error) {
	snap, err := s.snapshot(ctx, requestID)
	if err != nil {
		return TokenPair{}, err
	}

	userID, err := uuid.Parse(snap.ID)
	if err != nil {
		return TokenPair{}, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return TokenPair{}, err
	}
	if user.TotpSecret == "" || !totp.Validate(code, user.TotpSecret) {
		return TokenPair{}, apperrors.ErrNotFound
	}

	if err := s.users.UpdateFields(ctx, userID, map[string]interface{}{
		"totp_active": true,
		"totp_sync":   true,
	}); err != nil {
		return TokenPair{}, err
	}

	s.logger.Info("totp activated", zap.String("user_id", snap.ID))
	return s.tokens.Issue(ctx, snap.ID, snap.IsSuperuser, snap.Roles, snap.RequiredFields)
}

// CheckTotp finalizes a pending login. Users without an active second factor
// get tokens immediately. An active but unsynced factor rejects and flags the
// audit rows; so does a wrong code, which additionally reads as not found so
// a probing caller cannot tell a bad code from an expired request.
func (s *LoginRequestService) CheckTotp(ctx context.Context, requestID, code string) (TokenPair, error) {
	snap, err := s.snapshot(ctx, requestID)
	if err != nil {
		return TokenPair{}, err
	}

	if !snap.TotpActive {
		return s.tokens.Issue(ctx, snap.ID, snap.IsSuperuser, snap.Roles, snap.RequiredFields)
	}

	if !snap.TotpSync {
		s.markFailed(ctx, requestID)
		return TokenPair{}, apperrors.ErrTotpNotSynced
	}

	if snap.TotpSecret == "" {
		s.logger.Error("active totp user has no secret", zap.String("user_id", snap.ID))
		return TokenPair{}, apperrors.ErrInternal
	}

	if !totp.Validate(code, snap.TotpSecret) {
		s.markFailed(ctx, requestID)
		return TokenPair{}, apperrors.ErrNotFound
	}

	return s.tokens.Issue(ctx, snap.ID, snap.IsSuperuser, snap.Roles, snap.RequiredFields)
}

func (s *LoginRequestService) markFailed(ctx context.Context, requestID string) {
	if err := s.history.MarkTotpFailed(ctx, requestID); err != nil {
		s.logger.Warn("mark totp failure failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
}
