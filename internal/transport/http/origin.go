package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginPolicy is the allow-list of browser origins the admin frontend is served from.
type OriginPolicy struct {
	allowAll bool
	origins  map[string]struct{}
}

// NewOriginPolicy builds a policy from URL strings such as "https://admin.example.com".
// The entry "*" admits every origin.
func NewOriginPolicy(allowed []string) *OriginPolicy {
	p := &OriginPolicy{origins: make(map[string]struct{}, len(allowed))}
	for _, raw := range allowed {
		raw = strings.TrimSpace(raw)
		if raw == "*" {
			p.allowAll = true
			continue
		}
		if origin, ok := normalizeOrigin(raw); ok {
			p.origins[origin] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether a request carrying the Origin header value may proceed.
// Requests without an Origin header come from non-browser clients and are admitted;
// they still have to present a valid token.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" || p.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	_, allowed := p.origins[normalized]
	return allowed
}

func normalizeOrigin(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}

// CORSMiddleware answers preflights and sets CORS headers for allowed origins.
func CORSMiddleware(policy *OriginPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := origin != "" && policy.Allowed(origin)

		if allowed {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			if allowed {
				c.AbortWithStatus(http.StatusNoContent)
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}

		c.Next()
	}
}
