// Package middleware provides the gin middleware of the settings server.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-settings/internal/config"
)

// Context keys set by the middleware.
const (
	ActorKey     = "settings.actor"
	KeyHeader    = "X-Settings-Key"
	KeyCookie    = "settings_key"
	KeyParameter = "key"
)

// Recovery turns panics into 500 responses.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logrus.WithFields(logrus.Fields{
			"panic": recovered,
			"path":  c.Request.URL.Path,
			"stack": string(debug.Stack()),
		}).Error("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// Logger logs one line per request.
func Logger(cfg config.LogConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		if path == "/health" && cfg.Level != "debug" {
			return
		}
		entry := logrus.WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"method":   c.Request.Method,
			"path":     path,
			"ip":       c.ClientIP(),
			"duration": time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

// Auth requires the admin key in the X-Settings-Key header, a bearer token,
// the settings_key cookie or the key query parameter. An empty configured key
// lets every request through.
func Auth(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Key == "" {
			c.Set(ActorKey, "anonymous")
			c.Next()
			return
		}
		if !CheckKey(providedKey(c), cfg.Key) {
			logrus.WithField("path", c.Request.URL.Path).Warn("Rejected request with invalid admin key")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Set(ActorKey, "admin")
		c.Next()
	}
}

func providedKey(c *gin.Context) string {
	if key := c.GetHeader(KeyHeader); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if key, err := c.Cookie(KeyCookie); err == nil && key != "" {
		return key
	}
	return c.Query(KeyParameter)
}

// CheckKey compares provided with stored, which is a bcrypt hash or a plain
// key.
func CheckKey(provided, stored string) bool {
	if provided == "" || stored == "" {
		return false
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(provided)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) == 1
}

// HashKey returns a bcrypt hash suitable for SETTINGS_ADMIN_KEY.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isBcryptHash(value string) bool {
	if len(value) <= 4 {
		return false
	}
	switch value[:4] {
	case "$2a$", "$2b$", "$2y$":
		return true
	}
	return false
}
