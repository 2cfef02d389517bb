package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a bearer token and moves its claims into the
// request context: every model call downstream scopes by the company id
// carried in the token.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "bearer token is required"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validated, err := utils.JwtValidate(auth)
		if err != nil || !validated.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "invalid token"})
			c.Abort()
			return
		}

		claims, ok := validated.Claims.(*utils.JwtCustomClaim)
		if !ok || claims.CompanyId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "invalid token claims"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), auth)
		ctx = utils.SetCompanyIdInContext(ctx, claims.CompanyId)
		ctx = utils.SetUserIdInContext(ctx, claims.UserId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
