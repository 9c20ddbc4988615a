package monitoring

import (
	"net/http"
	"time"

	"droplink/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports process liveness and registry occupancy.
func HealthHandler(stats ports.RoomStats) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"peers":     stats.PeerCount(),
			"rooms":     stats.RoomCount(),
		})
	}
}
