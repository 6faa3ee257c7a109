package middleware

import (
	"github.com/gin-gonic/gin"
	"time"
)

const ReqArrivalTimeContextValueKey = "reqArrivalTime"

func QueueTimeMiddleware(c *gin.Context) {
	c.Set(ReqArrivalTimeContextValueKey, time.Now())
	c.Next()
}

// SinceArrival returns the time elapsed since QueueTimeMiddleware saw the request.
func SinceArrival(c *gin.Context) time.Duration {
	reqArrivalTime, exists := c.Get(ReqArrivalTimeContextValueKey)
	if !exists {
		return 0
	}
	return time.Since(reqArrivalTime.(time.Time))
}
