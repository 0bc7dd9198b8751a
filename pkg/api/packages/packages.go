package packages

import (
	"net/http"
	"strconv"

	"github.com/coverbay/coverbay/pkg/api/respond"
	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/lumber"
	"github.com/coverbay/coverbay/pkg/service/aggregator"
	"github.com/gin-gonic/gin"
)

// Handler serves package-level rollups of a commit's current report.
// The grouping depth defaults to the engine configuration and can be
// overridden per request with ?depth=N.
func Handler(logger lumber.Logger, store core.CoverageStore, agg *aggregator.Aggregator, defaultDepth int) gin.HandlerFunc {
	return func(c *gin.Context) {
		depth := defaultDepth
		if raw := c.Query("depth"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"message": "depth must be a positive integer"})
				return
			}
			depth = parsed
		}
		rows, err := store.ListFiles(c.Request.Context(),
			c.Param("org"), c.Param("repo"), c.Param("commit"))
		if err != nil {
			respond.Error(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": agg.PackageRollups(rows, depth)})
	}
}
