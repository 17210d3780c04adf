package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const actorKey = "auth.actor"

// requireAuth gates administrative routes behind an HS256 bearer token.
// Identity management lives outside this service; the middleware only
// verifies the signature and lifts the subject claim as the audit actor.
// An empty secret disables the gate for local development.
func (s *Server) requireAuth() gin.HandlerFunc {
	secret := []byte(s.cfg.Auth.Secret)
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Set(actorKey, "dev")
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			s.AbortWithError(c, errUnauthorized)
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			s.AbortWithError(c, errUnauthorized)
			return
		}

		actor := "unknown"
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			actor = sub
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFromContext(c *gin.Context) string {
	if v, ok := c.Get(actorKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
