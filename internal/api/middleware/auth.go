package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/ideagraph/pkg/auth"
	"github.com/d60-Lab/ideagraph/pkg/response"
)

const userIDKey = "userID"

// Auth 校验 Bearer 令牌，并把用户 id 写入上下文
func Auth(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearer(c)
		if !ok {
			response.Unauthorized(c, "authorization header is required")
			return
		}
		userID, err := tokens.Parse(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// OptionalAuth 携带有效令牌时写入用户 id，否则按匿名请求处理
func OptionalAuth(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearer(c); ok {
			if userID, err := tokens.Parse(token); err == nil {
				c.Set(userIDKey, userID)
			}
		}
		c.Next()
	}
}

// UserID 返回当前登录用户，匿名请求返回空串
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func bearer(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
