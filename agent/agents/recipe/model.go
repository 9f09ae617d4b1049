package recipe

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
}

type Recipe struct {
	Name        string       `json:"name"`
	Servings    float64      `json:"servings"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []string     `json:"steps,omitempty"`
}

func (r Recipe) toMap() map[string]any {
	ings := make([]any, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		ings = append(ings, map[string]any{
			"name":     ing.Name,
			"quantity": ing.Quantity,
			"unit":     ing.Unit,
		})
	}
	out := map[string]any{
		"name":        r.Name,
		"servings":    r.Servings,
		"ingredients": ings,
	}
	if len(r.Steps) > 0 {
		out["steps"] = r.Steps
	}
	return out
}

// parseRecipe reads the loosely typed recipe map carried in goal context.
// Ingredients may be objects or plain names.
func parseRecipe(raw map[string]any) (Recipe, error) {
	if raw == nil {
		return Recipe{}, ErrMissingRecipe
	}
	in := contractx.Input(raw)

	r := Recipe{Name: in.String("name")}
	if s, ok := in.Float("servings"); ok {
		r.Servings = s
	}

	for i, item := range in.Slice("ingredients") {
		switch v := item.(type) {
		case string:
			r.Ingredients = append(r.Ingredients, Ingredient{Name: strings.TrimSpace(v)})
		case map[string]any:
			ing := contractx.Input(v)
			q, _ := ing.Float("quantity")
			if q == 0 {
				q, _ = ing.Float("amount")
			}
			r.Ingredients = append(r.Ingredients, Ingredient{
				Name:     ing.String("name"),
				Quantity: q,
				Unit:     ing.String("unit"),
			})
		default:
			return Recipe{}, fmt.Errorf("%w: ingredient %d has unsupported type %T", contractx.ErrValidation, i, item)
		}
	}

	for _, s := range in.Slice("steps") {
		if str, ok := s.(string); ok {
			r.Steps = append(r.Steps, str)
		}
	}
	return r, nil
}
