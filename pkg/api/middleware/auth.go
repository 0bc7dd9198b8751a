// Package middleware holds gin middleware shared by the API routes.
package middleware

import (
	"errors"
	"net/http"

	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/lumber"
	"github.com/gin-gonic/gin"
)

// Authorize gates org/repo scoped routes behind the SCM capability check.
// A denial is a 403. Any other failure means the check could not be
// performed, which must not read as a denial, so it maps to 503.
func Authorize(authorizer core.Authorizer, logger lumber.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := authorizer.Authorize(c.Request.Context(), c.Param("org"), c.Param("repo"))
		if err == nil {
			c.Next()
			return
		}
		if errors.Is(err, errs.ErrUnauthorized) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": err.Error()})
			return
		}
		logger.Errorf("capability check for %s/%s failed: %v", c.Param("org"), c.Param("repo"), err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "capability check unavailable"})
	}
}
