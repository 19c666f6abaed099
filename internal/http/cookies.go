package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// Nombres de las cookies de autenticación.
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieHelper administra las cookies de autenticación: siempre
// httpOnly, secure según configuración.
type CookieHelper struct {
	domain string
	secure bool
}

func NewCookieHelper(domain string, secure bool) *CookieHelper {
	return &CookieHelper{domain: domain, secure: secure}
}

// SetAuthCookies fija ambas cookies con la vigencia de cada token.
func (h *CookieHelper) SetAuthCookies(c *gin.Context, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration) {
	h.setCookie(c, AccessTokenCookie, accessToken, int(accessTTL.Seconds()))
	h.setCookie(c, RefreshTokenCookie, refreshToken, int(refreshTTL.Seconds()))
}

// ClearAuthCookies expira ambas cookies de inmediato.
func (h *CookieHelper) ClearAuthCookies(c *gin.Context) {
	h.setCookie(c, AccessTokenCookie, "", -1)
	h.setCookie(c, RefreshTokenCookie, "", -1)
}

// GetAccessToken lee el access token desde cookie; vacío si no está.
func (h *CookieHelper) GetAccessToken(c *gin.Context) string {
	token, err := c.Cookie(AccessTokenCookie)
	if err != nil {
		return ""
	}
	return token
}

// GetRefreshToken lee el refresh token desde cookie; vacío si no está.
func (h *CookieHelper) GetRefreshToken(c *gin.Context) string {
	token, err := c.Cookie(RefreshTokenCookie)
	if err != nil {
		return ""
	}
	return token
}

func (h *CookieHelper) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		name,
		value,
		maxAge,
		"/",
		h.domain,
		h.secure,
		true, // httpOnly siempre para cookies de autenticación
	)
}
