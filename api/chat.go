package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) sendChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.chat.Execute(c.Request.Context(), contractx.Input{
		"message":    req.Message,
		"session_id": c.Param("session"),
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) chatHistory(c *gin.Context) {
	history, err := s.chat.History(c.Request.Context(), c.Param("session"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("session"), "history": history})
}

func (s *Server) resetChat(c *gin.Context) {
	if err := s.chat.Reset(c.Request.Context(), c.Param("session")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
