package upload

import (
	"errors"
	"io"
	"net/http"

	"github.com/coverbay/coverbay/pkg/api/respond"
	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/global"
	"github.com/coverbay/coverbay/pkg/lumber"
	"github.com/gin-gonic/gin"
)

// Handler accepts a raw coverage payload for a commit and runs it through
// the ingestion pipeline. The format tag comes from the ?format query
// parameter.
func Handler(logger lumber.Logger, ingestor core.Ingestor) gin.HandlerFunc {
	return func(c *gin.Context) {
		format := c.Query("format")
		if format == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "format query parameter is required"})
			return
		}
		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, global.MaxUploadBytes))
		if err != nil {
			logger.Debugf("error while reading upload body: %v", err)
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "payload exceeds the upload size limit"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"message": "error reading payload"})
			return
		}
		if len(payload) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "empty payload"})
			return
		}
		report, err := ingestor.Ingest(c.Request.Context(), &core.UploadRequest{
			Org:     c.Param("org"),
			Repo:    c.Param("repo"),
			Commit:  c.Param("commit"),
			Format:  format,
			Payload: payload,
		})
		if err != nil {
			respond.Error(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"report_id": report.ID, "summary": report.Summary})
	}
}
