package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticate resolves a raw "Bearer <jwt>" header value into claims and
// checks the token version against the stored one.
func Authenticate(ctx context.Context, tokens TokenService, repo *Repo, header string) (*Claims, error) {
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return nil, ErrUnauthenticated
	}
	raw := strings.TrimSpace(header[len("bearer "):])
	if raw == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if repo != nil {
		current, err := repo.GetTokenVersion(ctx, claims.UserID)
		if err != nil || current != claims.TokenVersion {
			return nil, ErrUnauthenticated
		}
	}
	return claims, nil
}

func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := Authenticate(c.Request.Context(), tokens, repo, h)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
