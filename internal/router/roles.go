package router

import "github.com/gin-gonic/gin"

func (r *Router) roleRoutes(version *gin.RouterGroup) {
	roles := version.Group("/roles")
	roles.Use(r.authMw.RequireAccess(), r.authMw.SuperuserOnly())
	{
		roles.POST("/", r.roleHandler.Create)
		roles.GET("/", r.roleHandler.List)
		roles.PUT("/:role_id", r.roleHandler.Update)
		roles.DELETE("/:role_id", r.roleHandler.Delete)
	}
}
