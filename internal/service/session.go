package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/internal/model"
	"github.com/surdiana/authd/pkg/events"
	"github.com/surdiana/authd/pkg/social"
)

const socialProvisionAttempts = 3

// LoginResult is the outcome of the first login step. Tokens are present only
// when no second factor is required; otherwise the caller must finalize the
// pending request with a TOTP code.
type LoginResult struct {
	RequestID  string
	TotpActive bool
	Tokens     *TokenPair
}

// SessionService orchestrates registration, the password step of login,
// refresh, logout and credential changes.
type SessionService struct {
	users       UserStore
	socials     SocialAccountStore
	history     HistoryStore
	tokens      *TokenService
	revocations *RevocationService
	broker      *LoginRequestService
	publisher   EventPublisher
	logger      *zap.Logger
}

func NewSessionService(
	users UserStore,
	socials SocialAccountStore,
	history HistoryStore,
	tokens *TokenService,
	revocations *RevocationService,
	broker *LoginRequestService,
	publisher EventPublisher,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		users:       users,
		socials:     socials,
		history:     history,
		tokens:      tokens,
		revocations: revocations,
		broker:      broker,
		publisher:   publisher,
		logger:      logger,
	}
}

// Register creates a local account. A taken login surfaces as ErrConflict.
func (s *SessionService) Register(ctx context.Context, login, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user := &model.User{
		Login:    login,
		Password: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))

	if err := s.publisher.PublishUserRegistered(ctx, events.UserRegisteredEvent{
		UserID:       user.ID.String(),
		Login:        login,
		RegisteredAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		// Registration already committed; the event is best effort.
		s.logger.Warn("registration event dropped", zap.Error(err))
	}
	return nil
}

// Authenticate runs the password step. An unknown login and a wrong password
// produce the same rejection so the endpoint cannot be used to enumerate
// accounts. On success a pending request is always stored, even when no
// second factor is needed and tokens are returned immediately.
func (s *SessionService) Authenticate(ctx context.Context, login, password, userAgent string) (LoginResult, error) {
	requestID := NewRequestID()

	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return LoginResult{}, apperrors.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	passwordOK := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
	s.recordLogin(ctx, user.ID, userAgent, passwordOK, requestID, "")
	if !passwordOK {
		return LoginResult{}, apperrors.ErrInvalidCredentials
	}

	return s.openRequest(ctx, requestID, user, nil)
}

// LoginSocial completes a provider-side OAuth exchange. A known provider
// identity logs into its linked account; an unknown one provisions a fresh
// account with placeholder credentials and links it, then proceeds like a
// normal login with the placeholder fields flagged for the client to replace.
func (s *SessionService) LoginSocial(ctx context.Context, data social.UserData, userAgent string) (LoginResult, error) {
	var (
		user           *model.User
		requiredFields []string
	)

	account, err := s.socials.GetByPair(ctx, data.SocialService, data.SocialID)
	switch {
	case err == nil:
		user, err = s.users.GetByID(ctx, account.UserID)
		if err != nil {
			return LoginResult{}, err
		}
	case errors.Is(err, apperrors.ErrNotFound):
		user, err = s.provisionSocialUser(ctx, data)
		if err != nil {
			return LoginResult{}, err
		}
		requiredFields = []string{"login", "password"}
	default:
		return LoginResult{}, err
	}

	requestID := NewRequestID()
	s.recordLogin(ctx, user.ID, userAgent, true, requestID, data.SocialService)
	return s.openRequest(ctx, requestID, user, requiredFields)
}

func (s *SessionService) provisionSocialUser(ctx context.Context, data social.UserData) (*model.User, error) {
	var user *model.User
	for attempt := 0; attempt < socialProvisionAttempts; attempt++ {
		login, err := randomToken(8)
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		password, err := randomToken(16)
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}

		candidate := &model.User{
			Login:    "social_" + login,
			Password: string(hash),
			Email:    data.Email,
		}
		err = s.users.Create(ctx, candidate)
		if err == nil {
			user = candidate
			break
		}
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
	}
	if user == nil {
		return nil, apperrors.ErrConflict
	}

	if err := s.socials.Create(ctx, &model.SocialAccount{
		UserID:        user.ID,
		SocialID:      data.SocialID,
		SocialService: data.SocialService,
		Profile:       datatypes.JSON(data.Raw),
	}); err != nil {
		return nil, err
	}

	s.logger.Info("social account provisioned",
		zap.String("user_id", user.ID.String()),
		zap.String("provider", data.SocialService),
	)
	return user, nil
}

// openRequest stores the pending snapshot and either returns tokens right
// away (no active second factor) or defers to the TOTP step.
func (s *SessionService) openRequest(ctx context.Context, requestID string, user *model.User, requiredFields []string) (LoginResult, error) {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Role)
	}

	snap := UserSnapshot{
		ID:             user.ID.String(),
		Login:          user.Login,
		IsSuperuser:    user.IsSuperuser,
		TotpSecret:     user.TotpSecret,
		TotpActive:     user.TotpActive,
		TotpSync:       user.TotpSync,
		RequiredFields: requiredFields,
		Roles:          roles,
	}
	if err := s.broker.Store(ctx, requestID, snap); err != nil {
		return LoginResult{}, err
	}

	result := LoginResult{RequestID: requestID, TotpActive: user.TotpActive}
	if user.TotpActive {
		return result, nil
	}

	pair, err := s.tokens.Issue(ctx, snap.ID, snap.IsSuperuser, snap.Roles, snap.RequiredFields)
	if err != nil {
		return LoginResult{}, err
	}
	result.Tokens = &pair
	return result, nil
}

// Refresh re-mints a token pair for the holder of a live refresh token. The
// refresh index must still map the token's jti to the target user; otherwise
// the token was never issued by this service or has aged out.
func (s *SessionService) Refresh(ctx context.Context, claims *Claims, userID string) (TokenPair, error) {
	ok, err := s.tokens.CheckRefresh(ctx, claims, userID)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		return TokenPair{}, apperrors.ErrUnauthorized
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return TokenPair{}, apperrors.ErrUnauthorized
	}
	roles, err := s.users.RoleNames(ctx, id)
	if err != nil {
		return TokenPair{}, err
	}

	return s.tokens.Issue(ctx, userID, claims.Admin == 1, roles, nil)
}

// Logout revokes the presented session, or every session of the user when
// allDevices is set.
func (s *SessionService) Logout(ctx context.Context, claims *Claims, userID string, allDevices bool) error {
	scope := claims.ID
	if claims.IsRefresh() {
		scope = claims.RelatedAccessToken
	}
	if allDevices {
		scope = ScopeAll
	}
	return s.revocations.Revoke(ctx, userID, scope)
}

// UpdateCredentials changes login and password in one write. A login collision
// surfaces as ErrConflict, an unknown user as ErrNotFound.
func (s *SessionService) UpdateCredentials(ctx context.Context, userID uuid.UUID, login, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return s.users.UpdateFields(ctx, userID, map[string]interface{}{
		"login":    login,
		"password": string(hash),
	})
}

// AssignRoles grants roles and immediately revokes every outstanding session
// so no token keeps carrying the stale role set.
func (s *SessionService) AssignRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	if err := s.users.AttachRoles(ctx, userID, roleIDs); err != nil {
		return err
	}
	return s.revocations.Revoke(ctx, userID.String(), ScopeAll)
}

// RemoveRoles revokes roles with the same session invalidation as AssignRoles.
func (s *SessionService) RemoveRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	if err := s.users.DetachRoles(ctx, userID, roleIDs); err != nil {
		return err
	}
	return s.revocations.Revoke(ctx, userID.String(), ScopeAll)
}

// GetUser loads an account with its roles.
func (s *SessionService) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UserRoles lists the user's current role names.
func (s *SessionService) UserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.users.RoleNames(ctx, userID)
}

// UnlinkSocial removes a provider link from the user.
func (s *SessionService) UnlinkSocial(ctx context.Context, userID uuid.UUID, provider string) error {
	return s.socials.DeleteByUserAndService(ctx, userID, provider)
}

func (s *SessionService) recordLogin(ctx context.Context, userID uuid.UUID, userAgent string, ok bool, requestID, serviceName string) {
	entry := &model.LoginHistory{
		UserID:      userID,
		UserAgent:   userAgent,
		LoginStatus: ok,
		RequestID:   requestID,
		ServiceName: serviceName,
		TotpStatus:  true,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		// Audit trail is best effort; the login itself must not fail on it.
		s.logger.Warn("login history write failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
