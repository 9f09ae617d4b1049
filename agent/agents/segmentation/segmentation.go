// Package segmentation groups customers by spend, frequency and recency.
package segmentation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tanpawarit/agent-teams/agent/base"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

const (
	SegmentVIP     = "vip"
	SegmentLoyal   = "loyal"
	SegmentAtRisk  = "at_risk"
	SegmentNew     = "new"
	SegmentRegular = "regular"
)

// Segments lists every segment in evaluation order.
var Segments = []string{SegmentVIP, SegmentLoyal, SegmentAtRisk, SegmentNew, SegmentRegular}

type Rules struct {
	VIPSpend     float64
	LoyalOrders  int
	AtRiskDays   int
	NewDays      int
	NewMaxOrders int
}

func DefaultRules() Rules {
	return Rules{VIPSpend: 1000, LoyalOrders: 5, AtRiskDays: 90, NewDays: 30, NewMaxOrders: 1}
}

type Config struct {
	Name     string
	Rules    Rules
	LogLevel string
}

type Agent struct {
	*base.Agent

	rules Rules
	now   func() time.Time
}

var _ contractx.Agent = (*Agent)(nil)

type Customer struct {
	ID             string
	TotalSpent     float64
	OrderCount     int
	LastOrderDays  int
	FirstOrderDays int
}

func New(cfg Config) *Agent {
	if cfg.Name == "" {
		cfg.Name = "customer_segmentation"
	}
	rules := cfg.Rules
	if rules == (Rules{}) {
		rules = DefaultRules()
	}
	a := &Agent{rules: rules, now: time.Now}
	a.Agent = base.New(cfg.Name, base.WithLogLevel(logx.ParseLevel(cfg.LogLevel)))
	return a
}

// Execute segments "customers" ([{email, total_spent, order_count,
// last_order_days}]) or derives customers from raw "orders".
func (a *Agent) Execute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}

	var (
		customers []Customer
		err       error
	)
	switch {
	case len(in.Slice("customers")) > 0:
		customers, err = fromCustomers(in.Slice("customers"))
	case len(in.Slice("orders")) > 0:
		customers, err = fromOrders(in.Slice("orders"), a.now().UTC())
	default:
		return nil, fmt.Errorf("%w: customers or orders are required", contractx.ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	segments := make(map[string][]string, len(Segments))
	for _, s := range Segments {
		segments[s] = []string{}
	}
	var revenue float64
	for _, c := range customers {
		seg := a.rules.Classify(c)
		segments[seg] = append(segments[seg], c.ID)
		revenue += c.TotalSpent
	}
	counts := make(map[string]int, len(segments))
	for s, ids := range segments {
		sort.Strings(ids)
		counts[s] = len(ids)
	}

	a.Event(logx.LevelInfo).Int("customers", len(customers)).Msg("customers segmented")
	return contractx.Output{
		"segments":        segments,
		"counts":          counts,
		"total_customers": len(customers),
		"total_revenue":   revenue,
		"method":          "rules",
		"recommendations": recommendations(counts),
	}, nil
}

func (a *Agent) Rules() Rules {
	return a.rules
}

// Classify returns the first matching segment: vip, loyal, at_risk, new,
// otherwise regular.
func (r Rules) Classify(c Customer) string {
	switch {
	case c.TotalSpent >= r.VIPSpend:
		return SegmentVIP
	case c.OrderCount >= r.LoyalOrders:
		return SegmentLoyal
	case c.LastOrderDays > r.AtRiskDays:
		return SegmentAtRisk
	case c.OrderCount <= r.NewMaxOrders || (c.FirstOrderDays >= 0 && c.FirstOrderDays <= r.NewDays):
		return SegmentNew
	default:
		return SegmentRegular
	}
}

func fromCustomers(raw []any) ([]Customer, error) {
	out := make([]Customer, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: customers[%d] is not an object", contractx.ErrValidation, i)
		}
		c := contractx.Input(m)
		id := c.StringOr("email", c.StringOr("id", fmt.Sprintf("customer_%d", i+1)))
		spent, _ := c.Float("total_spent")
		out = append(out, Customer{
			ID:             id,
			TotalSpent:     spent,
			OrderCount:     c.IntOr("order_count", c.IntOr("orders_count", 0)),
			LastOrderDays:  c.IntOr("last_order_days", 0),
			FirstOrderDays: c.IntOr("first_order_days", -1),
		})
	}
	return out, nil
}

// fromOrders folds orders ({email, total, date}) into per-customer totals.
func fromOrders(raw []any, now time.Time) ([]Customer, error) {
	type acc struct {
		spent       float64
		count       int
		first, last time.Time
	}
	byID := map[string]*acc{}
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: orders[%d] is not an object", contractx.ErrValidation, i)
		}
		o := contractx.Input(m)
		id := strings.ToLower(o.StringOr("email", o.String("customer_id")))
		if id == "" {
			continue
		}
		total, ok := o.Float("total")
		if !ok {
			total, _ = o.Float("total_price")
		}
		at, err := time.Parse("2006-01-02", firstN(o.StringOr("date", o.String("created_at")), 10))
		if err != nil {
			at = now
		}

		c := byID[id]
		if c == nil {
			c = &acc{first: at, last: at}
			byID[id] = c
		}
		c.spent += total
		c.count++
		if at.Before(c.first) {
			c.first = at
		}
		if at.After(c.last) {
			c.last = at
		}
	}

	out := make([]Customer, 0, len(byID))
	for id, c := range byID {
		out = append(out, Customer{
			ID:             id,
			TotalSpent:     c.spent,
			OrderCount:     c.count,
			LastOrderDays:  daysBetween(c.last, now),
			FirstOrderDays: daysBetween(c.first, now),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func recommendations(counts map[string]int) map[string]string {
	text := map[string]string{
		SegmentVIP:     "Offer early access and personal thank-you notes.",
		SegmentLoyal:   "Reward with a loyalty discount on the next order.",
		SegmentAtRisk:  "Send a win-back email with a limited-time offer.",
		SegmentNew:     "Welcome series introducing best sellers.",
		SegmentRegular: "Include in the regular newsletter.",
	}
	out := map[string]string{}
	for s, n := range counts {
		if n > 0 {
			out[s] = text[s]
		}
	}
	return out
}

func daysBetween(from, to time.Time) int {
	d := int(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
