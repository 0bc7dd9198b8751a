package report

import (
	"net/http"

	"github.com/coverbay/coverbay/pkg/api/respond"
	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/lumber"
	"github.com/gin-gonic/gin"
)

// Handler serves the current coverage summary for a commit.
func Handler(logger lumber.Logger, store core.CoverageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := store.GetCurrentReport(c.Request.Context(),
			c.Param("org"), c.Param("repo"), c.Param("commit"))
		if err != nil {
			respond.Error(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, report.Summary)
	}
}
