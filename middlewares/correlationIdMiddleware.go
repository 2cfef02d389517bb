package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bitbucket.org/mmdatafocus/retail_backend/utils"
)

const correlationIdHeader = "X-Correlation-Id"

// CorrelationIdMiddleware threads a correlation id through the request so log
// lines and outbox rows written during the request can be tied together.
func CorrelationIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.Request.Header.Get(correlationIdHeader)
		if correlationId == "" {
			correlationId = uuid.NewString()
		}

		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(correlationIdHeader, correlationId)
		c.Next()
	}
}
