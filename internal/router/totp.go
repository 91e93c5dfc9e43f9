package router

import "github.com/gin-gonic/gin"

// totpRoutes are keyed by pending request id, not bearer token: they finalize
// logins that have not produced a token yet.
func (r *Router) totpRoutes(version *gin.RouterGroup) {
	totp := version.Group("/totp")
	{
		totp.GET("/sync/:request_id", r.totpHandler.Sync)
		totp.POST("/sync/:request_id", r.totpHandler.Activate)
		totp.POST("/check/:request_id", r.totpHandler.Check)
	}
}
