package diff

import (
	"net/http"

	"github.com/coverbay/coverbay/pkg/api/respond"
	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/lumber"
	"github.com/gin-gonic/gin"
)

// Handler compares the current report of the path commit against the
// ?base= commit and serves the per-file deltas.
func Handler(logger lumber.Logger, differ core.DiffService) gin.HandlerFunc {
	return func(c *gin.Context) {
		base := c.Query("base")
		if base == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "base query parameter is required"})
			return
		}
		result, err := differ.Compare(c.Request.Context(),
			c.Param("org"), c.Param("repo"), base, c.Param("commit"))
		if err != nil {
			respond.Error(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
