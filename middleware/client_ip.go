package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextClientIP caches the resolved caller address for the request.
const ContextClientIP = "clientIP"

// getClientIP resolves the browser's address for rate limiting and request
// logs. The first parseable X-Forwarded-For hop wins, then X-Real-IP, then
// the socket peer. Garbage in the headers is skipped, not trusted.
func getClientIP(c *gin.Context) string {
	if ip := c.GetString(ContextClientIP); ip != "" {
		return ip
	}
	ip := resolveClientIP(c)
	c.Set(ContextClientIP, ip)
	return ip
}

func resolveClientIP(c *gin.Context) string {
	for _, hop := range strings.Split(c.GetHeader("X-Forwarded-For"), ",") {
		if ip := parseIP(hop); ip != "" {
			return ip
		}
	}
	if ip := parseIP(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}
	return c.Request.RemoteAddr
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	if ip := net.ParseIP(s); ip != nil {
		return ip.String()
	}
	return ""
}
