package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hydradiscovery/hydradiscovery/internal/api/models"
	"golang.org/x/time/rate"
)

// RateLimit applies a shared token-bucket limiter (golang.org/x/time/rate)
// across every request the admin API serves, grounded on O-tero's
// warming.Service use of rate.NewLimiter for its origin-fetch budget.
func RateLimit(qps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(qps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
