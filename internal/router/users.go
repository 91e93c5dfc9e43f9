package router

import "github.com/gin-gonic/gin"

func (r *Router) userRoutes(version *gin.RouterGroup) {
	users := version.Group("/users")
	{
		// Public routes
		users.POST("/register", r.authHandler.Register)
		users.POST("/login", r.authHandler.Login)
		users.GET("/social/register/:provider", r.socialHandler.Redirect)
		users.GET("/social/login/:provider", r.socialHandler.Login)

		// Refresh-token routes
		refresh := users.Group("")
		refresh.Use(r.authMw.RequireRefresh(), r.authMw.OwnerOrAdmin())
		{
			refresh.GET("/refresh/:user_id", r.authHandler.Refresh)
		}

		// Access-token routes, owner or superuser only
		protected := users.Group("")
		protected.Use(r.authMw.RequireAccess(), r.authMw.OwnerOrAdmin())
		{
			protected.GET("/logout/:user_id", r.authHandler.Logout)
			protected.GET("/:user_id", r.userHandler.Get)
			protected.PUT("/:user_id", r.userHandler.Update)
			protected.GET("/history/:user_id", r.userHandler.History)
			protected.GET("/roles/:user_id", r.userHandler.Roles)
		}

		// Role grants, superuser only
		admin := users.Group("")
		admin.Use(r.authMw.RequireAccess(), r.authMw.SuperuserOnly())
		{
			admin.POST("/roles/:user_id", r.userHandler.AttachRoles)
			admin.DELETE("/roles/:user_id", r.userHandler.DetachRoles)
		}

		// Provider unlink for the authenticated account itself
		social := users.Group("")
		social.Use(r.authMw.RequireAccess())
		{
			social.DELETE("/social/delete/:provider", r.socialHandler.Unlink)
		}
	}
}
