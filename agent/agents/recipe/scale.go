package recipe

import (
	"fmt"
	"math"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

// scale multiplies every ingredient by target/servings. The target comes from
// target_servings, or from an upstream forecast's average_daily rounded up.
func (a *Agent) scale(in contractx.Input) (contractx.Output, error) {
	r, err := parseRecipe(in.Map("recipe"))
	if err != nil {
		return nil, err
	}
	if r.Servings <= 0 {
		return nil, ErrMissingServings
	}

	target, err := targetServings(in)
	if err != nil {
		return nil, err
	}

	factor := target / r.Servings
	scaled := Recipe{
		Name:        r.Name,
		Servings:    target,
		Ingredients: make([]Ingredient, 0, len(r.Ingredients)),
		Steps:       r.Steps,
	}
	for _, ing := range r.Ingredients {
		ing.Quantity = round2(ing.Quantity * factor)
		scaled.Ingredients = append(scaled.Ingredients, ing)
	}

	a.Set("last_scaled", r.Name)
	return contractx.Output{
		"recipe":          scaled.toMap(),
		"original":        r.Name,
		"scale_factor":    round2(factor),
		"target_servings": target,
	}, nil
}

func targetServings(in contractx.Input) (float64, error) {
	if t, ok := in.Float("target_servings"); ok {
		if t <= 0 {
			return 0, fmt.Errorf("%w: target_servings must be positive", contractx.ErrValidation)
		}
		return t, nil
	}
	if f := in.Map("forecast"); f != nil {
		if avg, ok := contractx.Number(f["average_daily"]); ok && avg > 0 {
			return math.Ceil(avg), nil
		}
	}
	return 0, fmt.Errorf("%w: target_servings is required", contractx.ErrValidation)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
