package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ciclus/rd-dashboard/models"
	"github.com/ciclus/rd-dashboard/utils"
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middlewares.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxName   = "name"
	CtxToken  = "token"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("cabeçalho Authorization ausente"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("formato de token inválido"))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("sessão inválida ou expirada"))
			c.Abort()
			return
		}

		setClaims(c, claims, tokenString)
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *utils.CustomClaims, token string) {
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxName, claims.Name)
	c.Set(CtxToken, token)
}

// CurrentActor returns the authenticated user of the request.
func CurrentActor(c *gin.Context) models.Actor {
	return models.Actor{
		ID:   c.GetString(CtxUserID),
		Role: models.UserRole(c.GetString(CtxRole)),
	}
}
