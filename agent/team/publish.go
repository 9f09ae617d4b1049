package team

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

// Publisher delivers a payload to a destination and returns its message id.
type Publisher interface {
	Publish(ctx context.Context, destination string, payload any) (string, error)
}

// ResultPublisher forwards every finished GoalResult to a Publisher. Sends run
// in the background so a slow broker never holds up the goal.
type ResultPublisher struct {
	pub         Publisher
	destination string
	timeout     time.Duration
	log         zerolog.Logger
	wg          sync.WaitGroup
}

var _ Observer = (*ResultPublisher)(nil)

func NewResultPublisher(pub Publisher, destination string, logger zerolog.Logger) *ResultPublisher {
	return &ResultPublisher{
		pub:         pub,
		destination: destination,
		timeout:     15 * time.Second,
		log:         logger.With().Str("component", "result_publisher").Logger(),
	}
}

func (p *ResultPublisher) OnStep(context.Context, string, string, contractx.StepResult) {}

func (p *ResultPublisher) OnGoal(ctx context.Context, res contractx.GoalResult) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		id, err := p.pub.Publish(ctx, p.destination, res)
		if err != nil {
			p.log.Error().Err(err).Str("goal", res.Goal).Str("run_id", res.RunID).Msg("publish goal result failed")
			return
		}
		p.log.Debug().Str("goal", res.Goal).Str("run_id", res.RunID).Str("message_id", id).Msg("goal result published")
	}()
}

// Wait blocks until every pending publish has finished.
func (p *ResultPublisher) Wait() {
	p.wg.Wait()
}
