package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surdiana/authd/internal/constants"
	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/internal/service"
)

const claimsContextKey = "token_claims"

// AuthMiddleware guards routes behind a valid, unrevoked token.
type AuthMiddleware struct {
	tokens      *service.TokenService
	revocations *service.RevocationService
	logger      *zap.Logger
}

func NewAuthMiddleware(tokens *service.TokenService, revocations *service.RevocationService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, revocations: revocations, logger: logger}
}

// RequireAccess admits only access tokens.
func (m *AuthMiddleware) RequireAccess() gin.HandlerFunc {
	return m.require(false)
}

// RequireRefresh admits only refresh tokens.
func (m *AuthMiddleware) RequireRefresh() gin.HandlerFunc {
	return m.require(true)
}

func (m *AuthMiddleware) require(refresh bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.parseBearer(c)
		if !ok {
			return
		}
		if claims.IsRefresh() != refresh {
			m.logger.Warn("wrong token kind presented",
				zap.String("path", c.Request.URL.Path),
				zap.Bool("refresh_expected", refresh),
			)
			c.JSON(http.StatusUnauthorized, constants.MsgResponse(constants.MsgUnauthorized))
			c.Abort()
			return
		}

		revoked, err := m.revocations.IsRevoked(c.Request.Context(), claims)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, apperrors.ErrStoreUnavailable) {
				status = http.StatusServiceUnavailable
			}
			m.logger.Error("revocation check failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			c.JSON(status, constants.MsgResponse(constants.MsgUnauthorized))
			c.Abort()
			return
		}
		if revoked {
			c.JSON(http.StatusUnauthorized, constants.MsgResponse(constants.MsgNotFound))
			c.Abort()
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

func (m *AuthMiddleware) parseBearer(c *gin.Context) (*service.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		m.logger.Warn("missing or malformed authorization header",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusUnauthorized, constants.MsgResponse(constants.MsgUnauthorized))
		c.Abort()
		return nil, false
	}

	claims, err := m.tokens.Parse(parts[1])
	if err != nil {
		m.logger.Warn("token rejected",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusUnauthorized, constants.MsgResponse(constants.MsgUnauthorized))
		c.Abort()
		return nil, false
	}
	return claims, true
}

// OwnerOrAdmin admits the user whose id is in the path, or any superuser.
// Runs after RequireAccess or RequireRefresh.
func (m *AuthMiddleware) OwnerOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || (claims.Subject != c.Param("user_id") && claims.Admin != 1) {
			c.JSON(http.StatusUnauthorized, constants.MsgResponse(constants.MsgUnauthorized))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SuperuserOnly admits only tokens carrying the admin marker.
func (m *AuthMiddleware) SuperuserOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || claims.Admin != 1 {
			c.JSON(http.StatusUnauthorized, constants.MsgResponse(constants.MsgUnauthorized))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetClaims returns the claims stored by the auth middleware, or nil.
func GetClaims(c *gin.Context) *service.Claims {
	value, exists := c.Get(claimsContextKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}
