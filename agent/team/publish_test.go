package team

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

type recordingPublisher struct {
	mu       sync.Mutex
	dests    []string
	payloads []any
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, destination string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dests = append(p.dests, destination)
	p.payloads = append(p.payloads, payload)
	return "msg_1", p.err
}

func TestResultPublisherSendsGoalResults(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	rp := NewResultPublisher(pub, "goal-results", zerolog.Nop())

	l := newLeader(WithObserver(rp))
	if err := l.RegisterAgent("Forecaster", &fakeAgent{out: contractx.Output{"forecast": 1}}, "sales_forecasting"); err != nil {
		t.Fatalf("RegisterAgent() error = %v", err)
	}
	if err := l.DefineGoal(Goal{Name: "forecast_demand", Steps: []Step{{Capability: "sales_forecasting"}}}); err != nil {
		t.Fatalf("DefineGoal() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := l.ExecuteGoal(ctx, "forecast_demand", nil); err != nil {
		t.Fatalf("ExecuteGoal() error = %v", err)
	}
	cancel()
	rp.Wait()

	if len(pub.payloads) != 1 || pub.dests[0] != "goal-results" {
		t.Fatalf("unexpected publishes: %v %v", pub.dests, pub.payloads)
	}
	res, ok := pub.payloads[0].(contractx.GoalResult)
	if !ok || res.Goal != "forecast_demand" || res.Summary.Succeeded != 1 {
		t.Fatalf("unexpected payload: %#v", pub.payloads[0])
	}
}

func TestResultPublisherSwallowsErrors(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{err: errors.New("broker down")}
	rp := NewResultPublisher(pub, "goal-results", zerolog.Nop())
	rp.OnGoal(context.Background(), contractx.GoalResult{Goal: "x"})
	rp.Wait()

	if len(pub.payloads) != 1 {
		t.Fatalf("publish attempts = %d, want 1", len(pub.payloads))
	}
}
