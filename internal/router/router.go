package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surdiana/authd/internal/handler"
	"github.com/surdiana/authd/internal/middleware"
)

type Router struct {
	authHandler   *handler.AuthHandler
	userHandler   *handler.UserHandler
	totpHandler   *handler.TotpHandler
	roleHandler   *handler.RoleHandler
	socialHandler *handler.SocialHandler

	authMw *middleware.AuthMiddleware
	logger *zap.Logger
}

func NewRouter(
	auth *handler.AuthHandler,
	user *handler.UserHandler,
	totp *handler.TotpHandler,
	role *handler.RoleHandler,
	social *handler.SocialHandler,
	authMw *middleware.AuthMiddleware,
	logger *zap.Logger,
) *Router {
	return &Router{
		authHandler:   auth,
		userHandler:   user,
		totpHandler:   totp,
		roleHandler:   role,
		socialHandler: social,
		authMw:        authMw,
		logger:        logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logging(r.logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":    "healthy",
				"timestamp": time.Now().UTC(),
			})
		})

		v1 := api.Group("/v1")
		{
			r.userRoutes(v1)
			r.totpRoutes(v1)
			r.roleRoutes(v1)
		}
	}

	return router
}
