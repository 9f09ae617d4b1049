// Package ws streams goal progress to websocket clients.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	"github.com/tanpawarit/agent-teams/agent/team"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Event struct {
	Type   string                `json:"type"`
	RunID  string                `json:"run_id,omitempty"`
	Goal   string                `json:"goal"`
	Step   *contractx.StepResult `json:"step,omitempty"`
	Result *contractx.GoalResult `json:"result,omitempty"`
}

// Hub fans step and goal events out to every connected client.
type Hub struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	log     zerolog.Logger
}

var _ team.Observer = (*Hub)(nil)

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		log:     logger.With().Str("component", "ws_hub").Logger(),
	}
}

func (h *Hub) Register(rg *gin.RouterGroup) {
	rg.GET("", h.handleWS)
}

func (h *Hub) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients reports how many connections are open.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket broadcast marshal failed")
		return
	}

	// One writer per connection at a time.
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Warn().Err(err).Msg("websocket write failed")
		}
	}
}

func (h *Hub) OnStep(_ context.Context, runID, goal string, res contractx.StepResult) {
	h.Broadcast(Event{Type: "step", RunID: runID, Goal: goal, Step: &res})
}

func (h *Hub) OnGoal(_ context.Context, res contractx.GoalResult) {
	h.Broadcast(Event{Type: "goal", RunID: res.RunID, Goal: res.Goal, Result: &res})
}
