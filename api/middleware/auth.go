// api/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"example.com/ecoguard/internal/auth"
	"example.com/ecoguard/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Context keys
const (
	SessionContextKey   = "session"
	DeviceKeyContextKey = "device_key"
)

// Headers read by the gate
const (
	DeviceKeyHeader = "X-Device-Key"
	DeviceKeyQuery  = "key"
)

// SessionGate admits or rejects each request through gate. Admitted sessions are
// stored on both the gin context and the request context.
func SessionGate(gate *auth.Gate, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := auth.Request{
			Method:          c.Request.Method,
			Path:            c.Request.URL.Path,
			DeviceKeyHeader: c.GetHeader(DeviceKeyHeader),
			DeviceKeyQuery:  c.Query(DeviceKeyQuery),
			Authorization:   c.GetHeader("Authorization"),
		}

		decision, sess := gate.Admit(c.Request.Context(), req)
		switch decision {
		case auth.Unauthenticated:
			log.WithFields(logrus.Fields{
				"method": req.Method,
				"path":   req.Path,
			}).Warn("Rejected unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Unauthorized",
				"code":    "UNAUTHENTICATED",
			})
			return
		case auth.Forbidden:
			log.WithFields(logrus.Fields{
				"path":     req.Path,
				"username": sess.Username,
				"role":     sess.Role,
			}).Warn("Rejected request for insufficient role")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Forbidden",
				"code":    "FORBIDDEN",
			})
			return
		}

		if sess != nil {
			c.Set(SessionContextKey, sess)
			c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), sess))
		}
		if key, ok := gate.DeviceKey(req); ok && gate.ScopeOf(req.Path) == auth.ScopeDevice {
			c.Set(DeviceKeyContextKey, key)
		}

		c.Next()
	}
}

// UnderPath runs mw only for requests below prefix and passes the rest through.
// Unmatched routes use it so unknown paths under the base path still need credentials.
func UnderPath(prefix string, mw gin.HandlerFunc) gin.HandlerFunc {
	prefix = strings.TrimRight(prefix, "/")
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if prefix == "" || path == prefix || strings.HasPrefix(path, prefix+"/") {
			mw(c)
			return
		}
		c.Next()
	}
}

// GetSession retrieves the session admitted for this request
func GetSession(c *gin.Context) (*session.Session, bool) {
	val, exists := c.Get(SessionContextKey)
	if !exists {
		return nil, false
	}
	sess, ok := val.(*session.Session)
	return sess, ok
}

// GetDeviceKey retrieves the device key admitted for this request
func GetDeviceKey(c *gin.Context) string {
	return c.GetString(DeviceKeyContextKey)
}
