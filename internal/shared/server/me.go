package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-pipeline/internal/shared/server/middleware"
	"resume-pipeline/internal/shared/server/respond"
)

// registerMeRoutes attaches GET /me, which echoes the identity submissions are
// owned by. Clients use it to confirm a guest id before uploading.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", func(c *gin.Context) {
		id, ok := middleware.IdentityFromContext(c)
		if !ok || id.UserID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		respond.OK(c, id)
	})
}
