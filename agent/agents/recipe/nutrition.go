package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	"github.com/tanpawarit/agent-teams/agent/tool"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

type Nutrition struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
}

// per 100 g
var nutritionTable = map[string]Nutrition{
	"flour":     {364, 10.3, 1.0, 76.3},
	"sugar":     {387, 0, 0, 100},
	"butter":    {717, 0.9, 81.1, 0.1},
	"egg":       {143, 12.6, 9.5, 0.7},
	"milk":      {61, 3.2, 3.3, 4.8},
	"water":     {0, 0, 0, 0},
	"salt":      {0, 0, 0, 0},
	"yeast":     {325, 40.4, 7.6, 41.2},
	"chocolate": {546, 4.9, 31.3, 61.2},
	"cream":     {340, 2.8, 36.1, 2.8},
	"honey":     {304, 0.3, 0, 82.4},
}

func (a *Agent) nutrition(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	r, err := parseRecipe(in.Map("recipe"))
	if err != nil {
		return nil, err
	}
	servings := r.Servings
	if servings <= 0 {
		servings = 1
	}

	if a.facts != nil {
		payload, _ := json.Marshal(map[string]any{
			"instruction": "Estimate nutrition per serving as JSON with calories, protein_g, fat_g, carbs_g.",
			"recipe":      r,
		})
		facts, err := a.facts.Run(ctx, string(payload))
		if err == nil {
			return nutritionOutput(r, facts, "model", nil), nil
		}
		a.Log(logx.LevelWarn, "model nutrition failed, using table: "+err.Error())
	}

	var total Nutrition
	var unknown []string
	for _, ing := range r.Ingredients {
		grams, ok := gramsOf(ing)
		per, known := lookupNutrition(ing.Name)
		if !ok || !known {
			unknown = append(unknown, ing.Name)
			continue
		}
		f := grams / 100
		total.Calories += per.Calories * f
		total.ProteinG += per.ProteinG * f
		total.FatG += per.FatG * f
		total.CarbsG += per.CarbsG * f
	}

	perServing := Nutrition{
		Calories: round2(total.Calories / servings),
		ProteinG: round2(total.ProteinG / servings),
		FatG:     round2(total.FatG / servings),
		CarbsG:   round2(total.CarbsG / servings),
	}
	return nutritionOutput(r, perServing, "table", unknown), nil
}

func nutritionOutput(r Recipe, n Nutrition, source string, unknown []string) contractx.Output {
	out := contractx.Output{
		"recipe": r.Name,
		"per_serving": map[string]any{
			"calories":  n.Calories,
			"protein_g": n.ProteinG,
			"fat_g":     n.FatG,
			"carbs_g":   n.CarbsG,
		},
		"source": source,
	}
	if len(unknown) > 0 {
		out["unknown_ingredients"] = unknown
	}
	return out
}

func lookupNutrition(name string) (Nutrition, bool) {
	name = strings.ToLower(name)
	for key, n := range nutritionTable {
		if strings.Contains(name, key) {
			return n, true
		}
	}
	return Nutrition{}, false
}

// gramsOf converts an ingredient quantity to grams. Volumes are treated as
// water density; eggs count as 50 g each.
func gramsOf(ing Ingredient) (float64, bool) {
	unit := strings.ToLower(ing.Unit)
	switch unit {
	case "", "unit", "units", "pc", "pcs", "piece", "pieces":
		if strings.Contains(strings.ToLower(ing.Name), "egg") {
			return ing.Quantity * 50, true
		}
		return 0, false
	}
	if g, err := tool.Convert(ing.Quantity, unit, "g"); err == nil {
		return g, true
	}
	if ml, err := tool.Convert(ing.Quantity, unit, "ml"); err == nil {
		return ml, true
	}
	return 0, false
}

func (a *Agent) optimize(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	if a.advisor == nil {
		return nil, fmt.Errorf("%w: optimize needs a model", contractx.ErrModelAbsent)
	}
	r, err := parseRecipe(in.Map("recipe"))
	if err != nil {
		return nil, err
	}
	goal := in.StringOr("goal", "reduce cost without changing taste")

	payload, _ := json.Marshal(map[string]any{
		"instruction": "Suggest concrete changes to reach the goal. Respond as JSON with a suggestions array of strings.",
		"goal":        goal,
		"recipe":      r,
	})
	reply, err := a.advisor.Complete(ctx, string(payload))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil || len(parsed.Suggestions) == 0 {
		return contractx.Output{"recipe": r.Name, "goal": goal, "advice": reply}, nil
	}
	return contractx.Output{"recipe": r.Name, "goal": goal, "suggestions": parsed.Suggestions}, nil
}
