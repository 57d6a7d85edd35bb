package middlewares

import (
	"fmt"
	"net/http"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/services"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
)

// RequireRoles lets through only the listed profiles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("não autenticado"))
			c.Abort()
			return
		}

		if !services.RoleAllowed(models.UserRole(fmt.Sprint(role)), roles...) {
			utils.RespondAppError(c, utils.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireView gates a route group behind the same rule as view navigation.
func RequireView(view services.View) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := services.ResolveView(CurrentActor(c).Role, view)
		if !d.Allowed {
			c.JSON(http.StatusForbidden, utils.JSONResponse{
				Status:  false,
				Message: utils.ErrForbidden.Error(),
				Data:    d,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
