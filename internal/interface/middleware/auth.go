package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/kitchendiary/kitchen-diary-api/pkg/helpers"
	"github.com/kitchendiary/kitchen-diary-api/pkg/response"
)

// Auth validates the access token and ensures an active session exists
// in Redis. It sets userID, userEmail and isAdmin in the Gin context on
// success.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("access_token")
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", err.Error())
			c.Abort()
			return
		}

		// Retrieve session from Redis as a hash
		key := "user:session:" + claims.UserID
		data, err := rdb.HGetAll(c.Request.Context(), key).Result()
		if err != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
			c.Abort()
			return
		}

		c.Set("userID", data["user_id"])
		c.Set("userEmail", data["email"])
		c.Set("isAdmin", data["is_admin"] == "true")
		c.Next()
	}
}

// AdminOnly gates a route group on the session's admin flag. It must
// run after Auth. The authorization policy re-evaluates the role on the
// loaded actor; this is the transport-level cut-off.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("isAdmin") {
			response.Error[any](c, http.StatusForbidden, "user not authorized, admins only", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
