package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/models"
	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid bearer token. Browsers cannot set
// headers on websocket upgrades, so upgrade requests may pass the token in
// the access_token query parameter instead.
func JWT(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// Anonymous attaches admin claims to every request. It stands in for JWT
// when authentication is disabled so RBAC keeps working.
func Anonymous() gin.HandlerFunc {
	claims := &models.JWTClaims{UserID: "anonymous", Role: models.RoleAdmin}
	return func(c *gin.Context) {
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("access_token"); token != "" && strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			return token, nil
		}
		return "", appErrors.ErrUnauthorized
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
