// Package bakery defines the bakery team: demand forecasting, recipe work,
// production reports and customer questions.
package bakery

import (
	"fmt"

	"github.com/tanpawarit/agent-teams/agent/agents/recipe"
	"github.com/tanpawarit/agent-teams/agent/team"
)

const Name = "bakery"

const (
	CapSalesForecasting = "sales_forecasting"
	CapRecipeScale      = "recipe_scale"
	CapRecipeAllergens  = "recipe_allergens"
	CapRecipeNutrition  = "recipe_nutrition"
	CapRecipeSubstitute = "recipe_substitute"
	CapProductionReport = "production_report"
	CapCustomerSupport  = "customer_support"
)

func Goals() []team.Goal {
	forecast := team.Step{
		Capability:  CapSalesForecasting,
		Description: "Forecast demand from recent sales",
		Exports:     []string{"forecast", "trend"},
	}
	scale := team.Step{
		Capability:  CapRecipeScale,
		Description: "Scale the recipe to forecast demand",
		Input:       team.Set(map[string]any{"action": recipe.ActionScale}),
		Exports:     []string{"scale_factor", "target_servings"},
	}
	support := team.Step{
		Capability:  CapCustomerSupport,
		Description: "Answer the customer",
		Input:       team.Pick(nil, "message", "customer_message", "inquiry", "session_id"),
		Exports:     []string{"response"},
	}

	return []team.Goal{
		{
			Name:        "plan_production",
			Description: "Forecast demand, then scale the recipe to match",
			Steps:       []team.Step{forecast, scale},
		},
		{
			Name:        "daily_operations",
			Description: "Forecast, scale, report production and answer the day's inquiry",
			Steps: []team.Step{
				forecast,
				scale,
				{
					Capability:  CapProductionReport,
					Description: "Summarise what to bake",
					Input:       team.Pick(nil, "orders", "forecast", "product", "start_date", "end_date"),
					Exports:     []string{"report_text"},
				},
				support,
			},
		},
		{
			Name:        "custom_order",
			Description: "Handle a custom cake order with allergen and nutrition checks",
			Steps: []team.Step{
				support,
				{
					Capability:  CapRecipeAllergens,
					Description: "Check the recipe against the customer's allergies",
					Input:       team.Pick(map[string]any{"action": recipe.ActionAllergens}, "recipe", "allergies"),
					Exports:     []string{"allergens", "safe_for"},
				},
				{
					Capability:  CapRecipeNutrition,
					Description: "Estimate nutrition for the order",
					Input:       team.Pick(map[string]any{"action": recipe.ActionNutrition}, "recipe"),
					Exports:     []string{"per_serving"},
				},
			},
		},
		{
			Name:        "forecast_demand",
			Description: "Forecast demand only",
			Steps:       []team.Step{forecast},
		},
		{
			Name:        "recipe_management",
			Description: "Scale a recipe and suggest a substitution",
			Steps: []team.Step{
				scale,
				{
					Capability:  CapRecipeSubstitute,
					Description: "Suggest ingredient substitutes",
					Input:       team.Pick(map[string]any{"action": recipe.ActionSubstitute}, "recipe", "ingredient", "reason"),
				},
			},
		},
	}
}

// New returns a bakery leader with every goal defined and no members.
func New(opts ...team.Option) (*team.Leader, error) {
	return Define(team.New(Name, opts...))
}

// Define adds the bakery goals to l.
func Define(l *team.Leader) (*team.Leader, error) {
	for _, g := range Goals() {
		if err := l.DefineGoal(g); err != nil {
			return nil, fmt.Errorf("define %s goal %s: %w", Name, g.Name, err)
		}
	}
	return l, nil
}
