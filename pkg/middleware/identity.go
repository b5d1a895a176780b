package middleware

import (
	"strconv"

	"timeledger/pkg/errutil"

	"github.com/gin-gonic/gin"
)

const (
	UserIDHeader = "X-USER-ID"

	userIDKey = "user_id"
)

// Identity resolves the calling user from the X-USER-ID header. Session and
// password handling live upstream; this service only needs the owner id.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(errutil.StatusUnauthorized.HTTPStatus(), gin.H{
				"error": gin.H{"code": errutil.StatusUnauthorized, "message": "missing " + UserIDHeader + " header"},
			})
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(errutil.StatusBadRequest.HTTPStatus(), gin.H{
				"error": gin.H{"code": errutil.StatusBadRequest, "message": "invalid " + UserIDHeader + " header"},
			})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the user id resolved by Identity.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
