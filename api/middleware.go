package api

import (
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mozanhq/campaign-go/utils"
)

// isClientDisconnectError checks if the error is a common network error
// that occurs when a client closes the connection prematurely. These are
// safe to drop from the logs; they are not application-level bugs.
func isClientDisconnectError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.EPIPE) || errors.Is(opErr.Err, syscall.ECONNRESET) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "broken pipe")
}

// FilteredLogger mimics gin's default logger but drops benign
// broken-pipe errors, which SSE clients produce constantly.
func FilteredLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		c.Next()

		lastError := c.Errors.Last()
		if lastError != nil && isClientDisconnectError(lastError.Err) {
			return
		}

		var errorMsg string
		if lastError != nil {
			errorMsg = lastError.Error()
		}

		log.Printf("[GIN] %3d | %13v | %15s | %-7s %#v %s",
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
			c.Request.Method,
			path,
			errorMsg,
		)
	}
}

// RequestID tags every request with a ULID for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := utils.GenerateULID()
		c.Set("requestID", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// AdminRequired validates the admin JWT from the admin_auth cookie, with
// an Authorization bearer fallback for non-browser clients.
func AdminRequired(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("admin_auth")
		if token == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				token = auth[len("Bearer "):]
			}
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(token, jwtSecret)
		if err != nil || claims["type"] != "admin_auth" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		if sub, ok := claims["sub"].(string); ok {
			c.Set("adminUser", sub)
		}
		c.Next()
	}
}
