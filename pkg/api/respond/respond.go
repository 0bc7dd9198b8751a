// Package respond maps pipeline and storage errors onto HTTP responses.
package respond

import (
	"errors"
	"net/http"

	"github.com/coverbay/coverbay/pkg/errs"
	"github.com/coverbay/coverbay/pkg/lumber"
	"github.com/gin-gonic/gin"
)

// Error writes err as a JSON response with the status code its type maps
// to. Internal errors are logged in full but answered with a generic
// message.
func Error(c *gin.Context, logger lumber.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"message": errs.GenericErrRemark.Error()})
		return
	}
	if status >= http.StatusInternalServerError {
		logger.Errorf("request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		logger.Debugf("request %s %s rejected: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"message": err.Error()})
}

func statusFor(err error) int {
	var (
		parseErr       *errs.ParseError
		formatErr      *errs.UnsupportedFormatError
		pathErr        *errs.InvalidPathError
		emptyErr       *errs.EmptyReportError
		notFoundErr    *errs.NotFoundError
		unavailableErr *errs.StorageUnavailableError
	)
	switch {
	case errors.As(err, &parseErr),
		errors.As(err, &formatErr),
		errors.As(err, &pathErr),
		errors.As(err, &emptyErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusForbidden
	case errors.As(err, &unavailableErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
