package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/surdiana/authd/internal/errors"
)

// KV is the contract of one ephemeral store namespace.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Claims is the wire-visible token claim set. RelatedAccessToken is present
// only on refresh tokens and is how the revocation check tells the token kinds
// apart without a separate type tag.
type Claims struct {
	Roles              []string `json:"roles,omitempty"`
	Admin              int      `json:"admin"`
	RelatedAccessToken string   `json:"related_access_token,omitempty"`
	jwt.RegisteredClaims
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool {
	return c.RelatedAccessToken != ""
}

// TokenPair is what a completed login hands to the client.
type TokenPair struct {
	AccessToken    string   `json:"access_token"`
	RefreshToken   string   `json:"refresh_token"`
	RequiredFields []string `json:"required_fields"`
}

// TokenService mints and parses the signed access/refresh pair. Every minted
// refresh token is registered in the refresh index; a refresh token whose jti
// is absent from the index is unusable for the refresh operation no matter how
// valid its signature is.
type TokenService struct {
	secret       []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
	refreshIndex KV
	now          func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration, refreshIndex KV) *TokenService {
	return &TokenService{
		secret:       []byte(secret),
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		refreshIndex: refreshIndex,
		now:          time.Now,
	}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// Issue mints a linked access/refresh pair and registers the refresh jti in
// the index, value = owning user id, TTL = refresh lifetime.
func (s *TokenService) Issue(ctx context.Context, userID string, isSuperuser bool, roles, requiredFields []string) (TokenPair, error) {
	now := s.now().UTC()
	admin := 0
	if isSuperuser {
		admin = 1
	}
	if requiredFields == nil {
		requiredFields = []string{}
	}
	if roles == nil {
		roles = []string{}
	}

	accessJTI := uuid.NewString()
	accessClaims := Claims{
		Roles: roles,
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        accessJTI,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(s.secret)
	if err != nil {
		return TokenPair{}, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	refreshJTI := uuid.NewString()
	refreshClaims := Claims{
		Admin:              admin,
		RelatedAccessToken: accessJTI,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        refreshJTI,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.secret)
	if err != nil {
		return TokenPair{}, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.refreshIndex.Set(ctx, refreshJTI, userID, s.refreshTTL); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		RequiredFields: requiredFields,
	}, nil
}

// Parse validates signature and expiry and returns the claims.
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// CheckRefresh verifies the refresh-index double check: the presented refresh
// token's jti must still be registered and must map to the same user.
func (s *TokenService) CheckRefresh(ctx context.Context, claims *Claims, userID string) (bool, error) {
	owner, found, err := s.refreshIndex.Get(ctx, claims.ID)
	if err != nil {
		return false, err
	}
	return found && owner == userID, nil
}
