// Package shopify defines the store team: orders, support, marketing and
// weekly analytics for a Shopify shop.
package shopify

import (
	"fmt"
	"sort"

	shopagent "github.com/tanpawarit/agent-teams/agent/agents/shopify"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	promptx "github.com/tanpawarit/agent-teams/agent/prompt"
	"github.com/tanpawarit/agent-teams/agent/team"
)

const Name = "shopify_store"

const (
	CapOrderProcessing      = "order_processing"
	CapCustomerSupport      = "customer_support"
	CapCustomerSegmentation = "customer_segmentation"
	CapSocialMedia          = "social_media"
	CapEmailCampaign        = "email_campaign"
	CapSalesForecasting     = "sales_forecasting"
)

var campaignFields = []string{"product", "topic", "tone", "audience", "content_type", "platform", "counts", "store_name"}

func Goals() []team.Goal {
	orders := team.Step{
		Capability:  CapOrderProcessing,
		Description: "Summarise incoming orders",
		Input:       team.Pick(map[string]any{"action": shopagent.ActionOrders}, "orders", "status", "limit", "auto_fulfill"),
		Exports:     []string{"daily_revenue", "total_revenue", "unfulfilled"},
	}
	segment := team.Step{
		Capability:  CapCustomerSegmentation,
		Description: "Group customers by value and recency",
		Input:       team.Pick(nil, "customers", "orders"),
		Exports:     []string{"segments", "counts"},
	}

	return []team.Goal{
		{
			Name:        "process_orders",
			Description: "Process and summarise orders",
			Steps:       []team.Step{orders},
		},
		{
			Name:        "customer_support",
			Description: "Answer a customer message",
			Steps: []team.Step{{
				Capability:  CapCustomerSupport,
				Description: "Reply to the customer",
				Input:       team.Pick(map[string]any{"action": shopagent.ActionSupport}, "message", "customer_email", "customer_name"),
				Exports:     []string{"response", "intent"},
			}},
		},
		{
			Name:        "marketing_campaign",
			Description: "Segment customers, then write social and e-mail copy",
			Steps: []team.Step{
				segment,
				{
					Capability:  CapSocialMedia,
					Description: "Write a social post",
					Input:       team.Pick(map[string]any{"kind": promptx.ContentSocial}, campaignFields...),
				},
				{
					Capability:  CapEmailCampaign,
					Description: "Write the campaign e-mail",
					Input:       team.Pick(map[string]any{"kind": promptx.ContentEmail}, campaignFields...),
				},
			},
		},
		{
			Name:        "weekly_analytics",
			Description: "Summarise orders, forecast sales and segment customers",
			Steps: []team.Step{
				orders,
				{
					Capability:  CapSalesForecasting,
					Description: "Forecast sales from daily revenue",
					Input:       salesHistory,
					Exports:     []string{"forecast", "trend"},
				},
				segment,
			},
		},
	}
}

// salesHistory feeds the forecaster explicit sales_data, or the daily
// revenue exported by order processing in date order.
func salesHistory(values map[string]any) contractx.Input {
	in := contractx.Input{}
	for _, k := range []string{"sales_data", "historical_data", "forecast_days"} {
		if v, ok := values[k]; ok {
			in[k] = v
		}
	}
	if _, ok := in["sales_data"]; ok {
		return in
	}
	if _, ok := in["historical_data"]; ok {
		return in
	}

	daily, _ := values["daily_revenue"].(map[string]float64)
	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	series := make([]any, 0, len(days))
	for _, d := range days {
		series = append(series, daily[d])
	}
	in["sales_data"] = series
	return in
}

func New(opts ...team.Option) (*team.Leader, error) {
	return Define(team.New(Name, opts...))
}

func Define(l *team.Leader) (*team.Leader, error) {
	for _, g := range Goals() {
		if err := l.DefineGoal(g); err != nil {
			return nil, fmt.Errorf("define %s goal %s: %w", Name, g.Name, err)
		}
	}
	return l, nil
}
