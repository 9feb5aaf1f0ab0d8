package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "github.com/phompasit/finance-sub002/internal/core/context"
)

const HeaderUserID = "X-User-ID"

// UserContext propagates the caller identity from the X-User-ID header into
// the request context so audit columns and the audit trail can attribute
// changes. Authentication itself is handled upstream of this service.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID != "" {
			ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{UserID: userID})
			c.Request = c.Request.WithContext(ctx)
			c.Set("user_id", userID)
		}
		c.Next()
	}
}
