package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yuu1111/LiveNotifier/internal/logging"
)

const headerRequestID = "X-Request-ID"

// RequestLogger はリクエストIDを付与した子ロガーをcontextに入れ、完了時にアクセスログを出す。
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		child := logger.With().
			Str(logging.FieldRequestID, reqID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Logger()

		c.Header(headerRequestID, reqID)
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), child))

		c.Next()

		child.Debug().
			Int(logging.FieldStatus, c.Writer.Status()).
			Int64(logging.FieldLatency, time.Since(start).Milliseconds()).
			Msg("リクエスト完了")
	}
}
