package middleware

import (
	"net"
	"strings"

	"corvex/models"

	"github.com/gin-gonic/gin"
)

const (
	deviceClassKey = "deviceClass"
	deviceTouchKey = "deviceTouch"
)

func getClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 && ips[0] != "" {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := c.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}

// DeviceContextMiddleware resolves the widget's device class and touch
// capability from request headers. Missing or unknown headers resolve to
// the full (desktop) profile rather than rejecting the request.
func DeviceContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		class := models.ParseDeviceClass(strings.ToLower(strings.TrimSpace(c.GetHeader("X-Device-Class"))))

		touch := false
		switch strings.ToLower(c.GetHeader("X-Device-Touch")) {
		case "1", "true", "yes":
			touch = true
		}

		c.Set(deviceClassKey, class)
		c.Set(deviceTouchKey, touch)
		c.Next()
	}
}

// DeviceFrom returns the device class resolved by DeviceContextMiddleware.
func DeviceFrom(c *gin.Context) models.DeviceClass {
	if v, ok := c.Get(deviceClassKey); ok {
		if class, ok := v.(models.DeviceClass); ok {
			return class
		}
	}
	return models.DeviceFull
}

// TouchFrom reports whether the requesting device is touch-capable.
func TouchFrom(c *gin.Context) bool {
	if v, ok := c.Get(deviceTouchKey); ok {
		if touch, ok := v.(bool); ok {
			return touch
		}
	}
	return false
}
