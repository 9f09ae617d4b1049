package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	sessionx "github.com/tanpawarit/agent-teams/agent/session"
	"github.com/tanpawarit/agent-teams/agent/team"
)

type teamSummary struct {
	Name         string          `json:"name"`
	Goals        []team.GoalInfo `json:"goals"`
	Capabilities []string        `json:"capabilities"`
	Members      []string        `json:"members"`
}

type goalRequest struct {
	Context map[string]any `json:"context"`
}

func (s *Server) listTeams(c *gin.Context) {
	leaders := s.teams.All()
	out := make([]teamSummary, 0, len(leaders))
	for _, l := range leaders {
		out = append(out, teamSummary{
			Name:         l.Name(),
			Goals:        l.Goals(),
			Capabilities: l.Capabilities(),
			Members:      l.Members(),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) teamStatus(c *gin.Context) {
	l, ok := s.teams.Get(c.Param("team"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "team not found"})
		return
	}
	c.JSON(http.StatusOK, l.Status())
}

func (s *Server) executeGoal(c *gin.Context) {
	l, ok := s.teams.Get(c.Param("team"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "team not found"})
		return
	}

	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.runGoal(c, l, c.Param("goal"), req.Context)
}

func (s *Server) runGoal(c *gin.Context, l *team.Leader, goal string, values map[string]any) {
	res, err := l.ExecuteGoal(c.Request.Context(), goal, values)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// statusFor maps goal errors onto HTTP codes. A missing capability is a
// server configuration problem, not a client one.
func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrUnknownGoal), errors.Is(err, sessionx.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contractx.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
