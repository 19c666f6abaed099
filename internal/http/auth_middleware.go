package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vidtube/internal/service"
)

const authClaimsKey = "auth_claims"

// AuthMiddleware valida el access token (cookie o header Bearer) y
// guarda los claims del llamador en el contexto.
func AuthMiddleware(tokens *service.TokenService, cookies *CookieHelper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			respondError(c, http.StatusInternalServerError, "auth not configured")
			c.Abort()
			return
		}

		token := ""
		if cookies != nil {
			token = cookies.GetAccessToken(c)
		}
		if token == "" {
			header := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(strings.ToLower(header), "bearer ") {
				token = strings.TrimSpace(header[len("Bearer "):])
			}
		}
		if token == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized request")
			c.Abort()
			return
		}

		claims, err := tokens.Verify(token, service.TokenKindAccess)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid access token")
			c.Abort()
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// GetAuthClaims obtiene los claims del contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}
