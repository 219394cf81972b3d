package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"groupchat/internal/auth"
	"groupchat/internal/model"
)

const (
	memberContextKey = "member"
	tokenKeyword     = "Token"
)

// MemberLookup resolves the member a verified token belongs to.
type MemberLookup interface {
	MemberByID(id int64) (model.Member, error)
}

func MemberFromContext(c *gin.Context) (model.Member, bool) {
	v, ok := c.Get(memberContextKey)
	if !ok {
		return model.Member{}, false
	}
	m, ok := v.(model.Member)
	return m, ok && m.ID > 0
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", tokenKeyword)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}

// RequireToken accepts "Authorization: Token <key>" and stores the member
// in the request context.
func RequireToken(cfg auth.TokenConfig, members MemberLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.Fields(c.GetHeader("Authorization"))
		if len(parts) == 0 || !strings.EqualFold(parts[0], tokenKeyword) {
			unauthorized(c, "Authentication credentials were not provided.")
			return
		}
		if len(parts) == 1 {
			unauthorized(c, "Invalid token header. No credentials provided.")
			return
		}
		if len(parts) > 2 {
			unauthorized(c, "Invalid token header. Token string should not contain spaces.")
			return
		}

		claims, err := auth.VerifyToken(parts[1], cfg)
		if err != nil {
			unauthorized(c, "Invalid token.")
			return
		}
		id, err := claims.MemberID()
		if err != nil {
			unauthorized(c, "Invalid token.")
			return
		}
		member, err := members.MemberByID(id)
		if err != nil {
			unauthorized(c, "Invalid token.")
			return
		}

		c.Set(memberContextKey, member)
		c.Next()
	}
}
