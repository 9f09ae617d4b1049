package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// noisyPaths are polled often and logged at debug.
var noisyPaths = map[string]bool{
	"/health": true,
	"/api/ws": true,
}

func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.Method == http.MethodOptions {
			return
		}

		ev := logger.Info()
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			ev = logger.Error()
		case c.Request.Method == http.MethodGet && noisyPaths[c.Request.URL.Path]:
			ev = logger.Debug()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}
