package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

func newHubServer(t *testing.T) (*Hub, string) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	hub := NewHub(zerolog.Nop())
	r := gin.New()
	hub.Register(r.Group("/ws"))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHubBroadcastsToEveryClient(t *testing.T) {
	hub, url := newHubServer(t)
	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.OnStep(context.Background(), "run-1", "plan_production", contractx.StepResult{
		Capability: "sales_forecasting",
		Agent:      "SalesForecaster",
		Success:    true,
	})

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		assert.Equal(t, "step", ev.Type)
		assert.Equal(t, "run-1", ev.RunID)
		assert.Equal(t, "plan_production", ev.Goal)
		require.NotNil(t, ev.Step)
		assert.Equal(t, "sales_forecasting", ev.Step.Capability)
		assert.Nil(t, ev.Result)
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	hub, url := newHubServer(t)
	stay := dial(t, url)
	leave := dial(t, url)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, leave.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.OnGoal(context.Background(), contractx.GoalResult{
		Goal:    "daily_operations",
		RunID:   "run-2",
		Summary: contractx.Summary{Total: 4, Succeeded: 4, SuccessRate: 1},
	})

	ev := readEvent(t, stay)
	assert.Equal(t, "goal", ev.Type)
	assert.Equal(t, "run-2", ev.RunID)
	require.NotNil(t, ev.Result)
	assert.Equal(t, 4, ev.Result.Summary.Succeeded)
}

func TestBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.Broadcast(Event{Type: "step", Goal: "noop"})
	assert.Zero(t, hub.Clients())
}
