package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/doc-classifier/internal/common"
)

const healthTimeout = 3 * time.Second

// checkDependencies pings each configured dependency and reports "ok" or the failure.
func checkDependencies(ctx context.Context, checks map[string]Pinger) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	out := make(map[string]string, len(checks))
	healthy := true
	for name, ping := range checks {
		if ping == nil {
			continue
		}
		if err := ping(ctx); err != nil {
			out[name] = err.Error()
			healthy = false
			continue
		}
		out[name] = "ok"
	}
	return out, healthy
}

func (a *httpAPI) health(c *gin.Context) {
	checks, healthy := checkDependencies(c.Request.Context(), map[string]Pinger{
		"database": a.DBPing,
		"storage":  a.StoragePing,
	})

	if !healthy {
		common.LoggerFromContext(c.Request.Context(), a.logger).Error("health check failed", "checks", checks)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "checks": checks})
}
