package middleware

import (
	"net/http"
	"time"

	"trolleymatch/internal"
	"trolleymatch/internal/storage"

	"github.com/gin-gonic/gin"
)

// MaxBodySize caps the request body. Reads past the limit fail with
// *http.MaxBytesError, which handlers report as an oversized upload.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// SweepFiles removes expired uploads and results before the request is handled.
// Failures are logged and never fail the request.
func SweepFiles(maxAge time.Duration, logger *internal.Logger, dirs ...string) gin.HandlerFunc {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	logger = logger.With("Sweep")

	return func(c *gin.Context) {
		now := time.Now()
		for _, dir := range dirs {
			removed, err := storage.Sweep(dir, maxAge, now)
			if err != nil {
				logger.Warn("Failed to sweep %s: %v", dir, err)
				continue
			}
			if removed > 0 {
				logger.Info("Removed %d expired files from %s", removed, dir)
			}
		}
		c.Next()
	}
}
