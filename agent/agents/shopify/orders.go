package shopify

import (
	"context"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

type orderLine struct {
	number    string
	email     string
	total     float64
	status    string
	fulfilled bool
	// day is the order date as YYYY-MM-DD; empty when unknown.
	day string
}

const dayLayout = "2006-01-02"

// processOrders summarises "orders" from the input, or recent orders from
// the shop when none are given.
func (a *Agent) processOrders(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	lines, source, err := a.collectOrders(ctx, in)
	if err != nil {
		return nil, err
	}

	var (
		revenue     float64
		unfulfilled []string
		daily       = map[string]float64{}
		summaries   = make([]map[string]any, 0, len(lines))
	)
	for _, l := range lines {
		revenue += l.total
		if !l.fulfilled {
			unfulfilled = append(unfulfilled, l.number)
		}
		if l.day != "" {
			daily[l.day] += l.total
		}
		summaries = append(summaries, map[string]any{
			"order":     l.number,
			"email":     l.email,
			"total":     l.total,
			"status":    l.status,
			"fulfilled": l.fulfilled,
		})
	}
	a.Event(logx.LevelInfo).Int("orders", len(lines)).Float64("revenue", revenue).Msg("orders processed")

	out := contractx.Output{
		"orders_processed": len(lines),
		"total_revenue":    revenue,
		"unfulfilled":      unfulfilled,
		"orders":           summaries,
		"source":           source,
		"auto_fulfill":     in["auto_fulfill"] == true,
	}
	if len(daily) > 0 {
		out["daily_revenue"] = daily
	}
	return out, nil
}

func (a *Agent) collectOrders(ctx context.Context, in contractx.Input) ([]orderLine, string, error) {
	if raw := in.Slice("orders"); len(raw) > 0 {
		lines := make([]orderLine, 0, len(raw))
		for i, o := range raw {
			m, ok := o.(map[string]any)
			if !ok {
				continue
			}
			lines = append(lines, lineFromMap(m, i))
		}
		return lines, "input", nil
	}

	if a.client == nil {
		return nil, "mock", nil
	}
	orders, err := a.client.Orders(ctx, in.StringOr("status", "any"), in.IntOr("limit", defaultOrderLimit))
	if err != nil {
		return nil, "", err
	}
	lines := make([]orderLine, 0, len(orders))
	for _, o := range orders {
		total, _ := strconv.ParseFloat(o.TotalPrice, 64)
		status := o.FinancialStatus
		fulfilled := o.FulfillmentStatus != nil && *o.FulfillmentStatus == "fulfilled"
		number := o.Name
		if number == "" {
			number = "#" + strconv.FormatInt(o.OrderNumber, 10)
		}
		var day string
		if !o.CreatedAt.IsZero() {
			day = o.CreatedAt.Format(dayLayout)
		}
		lines = append(lines, orderLine{number: number, email: o.Email, total: total, status: status, fulfilled: fulfilled, day: day})
	}
	return lines, "shopify", nil
}

func lineFromMap(m map[string]any, idx int) orderLine {
	in := contractx.Input(m)
	number := in.String("order_number")
	if number == "" {
		number = in.String("name")
	}
	if number == "" {
		number = in.String("id")
	}
	if number == "" {
		number = "#" + strconv.Itoa(idx+1)
	}
	total, ok := in.Float("total")
	if !ok {
		total, _ = in.Float("total_price")
	}
	status := strings.ToLower(in.String("fulfillment_status"))
	return orderLine{
		number:    number,
		email:     in.String("email"),
		total:     total,
		status:    in.StringOr("financial_status", "pending"),
		fulfilled: status == "fulfilled" || m["fulfilled"] == true,
		day:       orderDay(in),
	}
}

// orderDay reads "date", falling back to the date part of "created_at".
func orderDay(in contractx.Input) string {
	if day := strings.TrimSpace(in.String("date")); day != "" {
		return day
	}
	if ts, ok := in["created_at"].(time.Time); ok && !ts.IsZero() {
		return ts.Format(dayLayout)
	}
	raw := in.String("created_at")
	if raw == "" {
		return ""
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.Format(dayLayout)
	}
	if len(raw) >= len(dayLayout) {
		if _, err := time.Parse(dayLayout, raw[:len(dayLayout)]); err == nil {
			return raw[:len(dayLayout)]
		}
	}
	return ""
}
