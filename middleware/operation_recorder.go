package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/pdftoolkit/models"
	"github.com/cppla/pdftoolkit/utils"
)

// OperationRecorder records one ledger entry per processing request after it completes.
// Handlers tag the request with utils.ContextOperationKey; untagged requests are ignored.
func OperationRecorder(ledger utils.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.Method != "POST" || !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			return
		}
		kind := c.GetString(utils.ContextOperationKey)
		if kind == "" {
			return
		}

		code := c.GetString(utils.ContextErrorCodeKey)
		op := models.Operation{
			Kind:       kind,
			Success:    code == "" && c.Writer.Status() < 400,
			ErrorCode:  code,
			FileCount:  c.GetInt(utils.ContextFileCountKey),
			DurationMS: time.Since(start).Milliseconds(),
			ClientIP:   c.ClientIP(),
		}
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := ledger.Record(ctx, op); err != nil {
			utils.L().Warn("record operation failed", zap.String("kind", kind), zap.Error(err))
		}
		utils.LogOperation(kind, op.Success,
			zap.String("error_code", code),
			zap.Int("files", op.FileCount),
			zap.Int64("duration_ms", op.DurationMS))
	}
}
