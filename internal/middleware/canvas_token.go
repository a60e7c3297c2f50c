package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
	"github.com/noah-isme/canvas-gradebook/pkg/response"
)

// ContextCanvasTokenKey is the gin context key storing the Canvas bearer token.
const ContextCanvasTokenKey = "canvasToken"

// CanvasToken resolves the Canvas token for the request: the caller's
// Authorization bearer if sent, otherwise fallback. A malformed header is
// rejected; an absent token is left for the services to report.
func CanvasToken(fallback string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(fallback)

		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
				c.Abort()
				return
			}
			token = strings.TrimSpace(parts[1])
		}

		c.Set(ContextCanvasTokenKey, token)
		c.Next()
	}
}

// TokenFromContext returns the token stored by CanvasToken.
func TokenFromContext(c *gin.Context) string {
	value, exists := c.Get(ContextCanvasTokenKey)
	if !exists {
		return ""
	}
	token, _ := value.(string)
	return token
}
