package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxCallbackBody = 1 << 20

// callback runs a goal delivered by QStash, e.g. a scheduled daily run. The
// body is either {"context": {...}} or the context object itself.
func (s *Server) callback(c *gin.Context) {
	l, ok := s.teams.Get(c.Param("team"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "team not found"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target := strings.TrimRight(s.publicURL, "/") + c.Request.URL.RequestURI()
	if err := s.verifier.Verify(c.GetHeader("Upstash-Signature"), body, target); err != nil {
		s.log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("rejected callback")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var values map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &values); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if inner, ok := values["context"].(map[string]any); ok {
			values = inner
		}
	}

	s.runGoal(c, l, c.Param("goal"), values)
}
