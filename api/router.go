// Package api exposes teams over HTTP: goal execution, team status, chat,
// signed QStash deliveries, websocket progress and an MCP endpoint.
package api

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	"github.com/tanpawarit/agent-teams/agent/team"
	"github.com/tanpawarit/agent-teams/api/ws"
)

// Chatter is the chat surface: one reply per message plus session history.
type Chatter interface {
	contractx.Executor
	History(ctx context.Context, sessionID string) ([]map[string]any, error)
	Reset(ctx context.Context, sessionID string) error
}

// Verifier authenticates QStash deliveries.
type Verifier interface {
	Verify(signature string, body []byte, requestURL string) error
}

type Option func(*Server)

func WithChat(c Chatter) Option {
	return func(s *Server) {
		s.chat = c
	}
}

// WithCallbacks enables POST /api/callbacks/:team/:goal. publicURL is the
// externally visible base URL QStash signs requests for.
func WithCallbacks(v Verifier, publicURL string) Option {
	return func(s *Server) {
		s.verifier = v
		s.publicURL = publicURL
	}
}

func WithHub(h *ws.Hub) Option {
	return func(s *Server) {
		s.hub = h
	}
}

// WithMCP mounts an MCP handler at /mcp.
func WithMCP(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.log = logger
	}
}

type Server struct {
	teams     *team.Directory
	chat      Chatter
	verifier  Verifier
	publicURL string
	hub       *ws.Hub
	mcp       http.Handler
	log       zerolog.Logger
}

func New(teams *team.Directory, opts ...Option) *Server {
	s := &Server{teams: teams, log: log.Logger}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.log = s.log.With().Str("component", "api").Logger()
	return s
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.log))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "Upstash-Signature"},
		ExposeHeaders:   []string{"Content-Length"},
	}))

	r.GET("/health", s.health)

	api := r.Group("/api")
	teams := api.Group("/teams")
	teams.GET("", s.listTeams)
	teams.GET("/:team", s.teamStatus)
	teams.POST("/:team/goals/:goal", s.executeGoal)

	if s.chat != nil {
		chat := api.Group("/chat")
		chat.POST("/:session", s.sendChat)
		chat.GET("/:session/history", s.chatHistory)
		chat.DELETE("/:session", s.resetChat)
	}
	if s.verifier != nil {
		api.POST("/callbacks/:team/:goal", s.callback)
	}
	if s.hub != nil {
		s.hub.Register(api.Group("/ws"))
	}
	if s.mcp != nil {
		r.Any("/mcp", gin.WrapH(s.mcp))
	}
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "teams": len(s.teams.All())})
}
