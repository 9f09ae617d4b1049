package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanpawarit/agent-teams/agent/agents/chat"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	"github.com/tanpawarit/agent-teams/agent/team"
	"github.com/tanpawarit/agent-teams/api"
	"github.com/tanpawarit/agent-teams/api/ws"
)

func init() { gin.SetMode(gin.TestMode) }

type staticAgent struct {
	out contractx.Output
	err error
}

func (a staticAgent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	return a.out, a.err
}

type fakeVerifier struct {
	err     error
	targets []string
}

func (f *fakeVerifier) Verify(signature string, body []byte, requestURL string) error {
	f.targets = append(f.targets, requestURL)
	if signature == "" {
		return errors.New("missing signature")
	}
	return f.err
}

func newBakery(t *testing.T, opts ...team.Option) *team.Leader {
	t.Helper()

	l := team.New("bakery", append([]team.Option{team.WithLogger(zerolog.Nop())}, opts...)...)
	require.NoError(t, l.DefineGoal(team.Goal{
		Name: "plan_production",
		Steps: []team.Step{
			{Capability: "sales_forecasting", Exports: []string{"forecast"}},
			{Capability: "recipe_scale"},
		},
	}))
	require.NoError(t, l.DefineGoal(team.Goal{
		Name:  "forecast_demand",
		Steps: []team.Step{{Capability: "sales_forecasting"}},
	}))
	require.NoError(t, l.RegisterAgent("Forecaster", staticAgent{out: contractx.Output{"forecast": map[string]any{"average_daily": 12}}}, "sales_forecasting"))
	return l
}

func do(t *testing.T, r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndTeams(t *testing.T) {
	t.Parallel()

	r := api.New(team.NewDirectory(newBakery(t)), api.WithLogger(zerolog.Nop())).Router()

	w := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","teams":1}`, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/teams", "")
	require.Equal(t, http.StatusOK, w.Code)
	var teams []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &teams))
	require.Len(t, teams, 1)
	assert.Equal(t, "bakery", teams[0]["name"])

	w = do(t, r, http.MethodGet, "/api/teams/bakery", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status team.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "last_wins", status.Policy)
	assert.Equal(t, "Forecaster", status.Members[0].Name)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/teams/bank", "").Code)
}

func TestExecuteGoal(t *testing.T) {
	t.Parallel()

	r := api.New(team.NewDirectory(newBakery(t)), api.WithLogger(zerolog.Nop())).Router()

	w := do(t, r, http.MethodPost, "/api/teams/bakery/goals/forecast_demand", `{"context":{"sales_data":[10,12,14]}}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res contractx.GoalResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "forecast_demand", res.Goal)
	assert.Equal(t, 1.0, res.Summary.SuccessRate)

	w = do(t, r, http.MethodPost, "/api/teams/bakery/goals/forecast_demand", "")
	assert.Equal(t, http.StatusOK, w.Code, "an empty body runs with no context")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown team", "/api/teams/bank/goals/plan_production", `{}`, http.StatusNotFound},
		{"unknown goal", "/api/teams/bakery/goals/close_shop", `{}`, http.StatusNotFound},
		{"unregistered capability", "/api/teams/bakery/goals/plan_production", `{}`, http.StatusInternalServerError},
		{"bad body", "/api/teams/bakery/goals/forecast_demand", `{"context":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := do(t, r, http.MethodPost, tt.path, tt.body)
		assert.Equal(t, tt.want, w.Code, tt.name)
	}
}

func TestChat(t *testing.T) {
	t.Parallel()

	bot := chat.New(chat.Config{Provider: chat.ProviderMock, LogLevel: "error"})
	r := api.New(team.NewDirectory(), api.WithChat(bot), api.WithLogger(zerolog.Nop())).Router()

	w := do(t, r, http.MethodPost, "/api/chat/s1", `{"message":"Do you sell rye?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "Mock response to: Do you sell rye?", out["response"])

	w = do(t, r, http.MethodGet, "/api/chat/s1/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		History []map[string]any `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Len(t, hist.History, 2)

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/api/chat/s1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/chat/s1", `{}`).Code)
}

func TestChatRoutesNeedAnAgent(t *testing.T) {
	t.Parallel()

	r := api.New(team.NewDirectory(), api.WithLogger(zerolog.Nop())).Router()
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/api/chat/s1", `{"message":"hi"}`).Code)
}

func TestCallbacks(t *testing.T) {
	t.Parallel()

	v := &fakeVerifier{}
	r := api.New(team.NewDirectory(newBakery(t)),
		api.WithCallbacks(v, "https://bakery.example/"),
		api.WithLogger(zerolog.Nop()),
	).Router()

	w := do(t, r, http.MethodPost, "/api/callbacks/bakery/forecast_demand", `{"sales_data":[1,2]}`, "Upstash-Signature", "sig")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "https://bakery.example/api/callbacks/bakery/forecast_demand", v.targets[0])

	w = do(t, r, http.MethodPost, "/api/callbacks/bakery/forecast_demand", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/callbacks/bakery/forecast_demand", `not json`, "Upstash-Signature", "sig")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebsocketReceivesGoalEvents(t *testing.T) {
	t.Parallel()

	hub := ws.NewHub(zerolog.Nop())
	l := newBakery(t, team.WithObserver(hub))
	srv := httptest.NewServer(api.New(team.NewDirectory(l), api.WithHub(hub), api.WithLogger(zerolog.Nop())).Router())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = l.ExecuteGoal(context.Background(), "forecast_demand", nil)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var step, goal ws.Event
	require.NoError(t, conn.ReadJSON(&step))
	require.NoError(t, conn.ReadJSON(&goal))

	assert.Equal(t, "step", step.Type)
	assert.Equal(t, "sales_forecasting", step.Step.Capability)
	assert.Equal(t, "goal", goal.Type)
	assert.Equal(t, 1, goal.Result.Summary.Succeeded)
}

func TestChatHistoryUnknownSession(t *testing.T) {
	t.Parallel()

	bot := chat.New(chat.Config{Provider: chat.ProviderMock, LogLevel: "error"})
	r := api.New(team.NewDirectory(), api.WithChat(bot), api.WithLogger(zerolog.Nop())).Router()
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/chat/nobody/history", "").Code)
}
