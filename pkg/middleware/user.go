package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader carries the caller identity set by the gateway
	UserIDHeader = "X-User-ID"
	// ContextKeyUserID is the gin context key for the user id
	ContextKeyUserID = "user_id"
)

// UserID extracts the caller identity from the gateway header. Requests
// without the header proceed with an empty user id; handlers that require
// identity reject those themselves.
func UserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID != "" {
			c.Set(ContextKeyUserID, userID)
		}
		c.Next()
	}
}

// GetUserID returns the user id from gin context
func GetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
