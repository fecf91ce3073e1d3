package middlewares

import "github.com/gin-gonic/gin"

// gin context keys
const (
	CtxRequestID = "request_id"
	CtxPrincipal = "auth.principal"
)

const requestIDHeader = "X-Request-Id"

// abortJSON writes the standard error envelope and stops the chain.
func abortJSON(c *gin.Context, status int, code, message string) {
	reqID := c.GetString(CtxRequestID)
	if reqID == "" {
		reqID = c.GetHeader(requestIDHeader)
	}

	body := gin.H{"code": code, "message": message}
	if reqID != "" {
		body["requestId"] = reqID
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
