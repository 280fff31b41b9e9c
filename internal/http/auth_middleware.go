package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"auth-api/internal/token"
)

const authClaimsKey = "auth_claims"

// BearerAuthMiddleware valida access tokens y guarda claims en el contexto.
func BearerAuthMiddleware(tokenServ *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenServ == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "token service not configured"}})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "missing token"}})
			c.Abort()
			return
		}

		claims, err := tokenServ.ParseAccess(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "invalid token"}})
			c.Abort()
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// GetAuthClaims obtiene los claims del access token desde el contexto.
func GetAuthClaims(c *gin.Context) (token.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return token.Claims{}, false
	}
	claims, ok := val.(token.Claims)
	return claims, ok
}
