package middleware

import (
	"net/http"

	"invocation-adapter/pkg/lambda"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter implements rate limiting middleware
func RateLimiter(requestsPerSecond float64, burstSize int, logger logrus.FieldLogger) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.WithFields(logrus.Fields{
				"client_ip":  c.ClientIP(),
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(RequestIDKey),
			}).Warn("Rate limit exceeded")

			AbortWithError(c, lambda.Errorf(http.StatusTooManyRequests,
				"Too many requests. Limit: %.1f requests per second", requestsPerSecond))
			return
		}

		c.Next()
	}
}
