package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ordercast-server/internal/auth"
	"github.com/vovakirdan/ordercast-server/internal/core"
)

// ContextKeyPrincipal is the context key for storing the authenticated core.Principal.
const ContextKeyPrincipal = "principal"

// AuthMiddleware creates a middleware that validates JWT tokens.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			logger.Debug().Msg("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header format"})
			return
		}

		principal, err := authService.Authenticate(token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}

		c.Set(ContextKeyPrincipal, principal)
		c.Next()
	}
}

// RequireStoreAccess rejects requests for a :storeId the principal may not watch.
func RequireStoreAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		if !principal.CanWatch(c.Param("storeId")) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "store access denied"})
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin rejects principals without the superadmin flag.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		if !principal.SuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "superadmin required"})
			return
		}
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

func principalFrom(c *gin.Context) (core.Principal, bool) {
	v, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return core.Principal{}, false
	}
	p, ok := v.(core.Principal)
	return p, ok
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
