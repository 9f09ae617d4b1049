package recipe

import (
	"sort"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

var allergenKeywords = map[string][]string{
	"milk":   {"milk", "butter", "cream", "cheese", "yogurt", "whey", "buttermilk"},
	"eggs":   {"egg", "meringue", "mayonnaise"},
	"wheat":  {"flour", "wheat", "semolina", "bread crumbs", "spelt"},
	"nuts":   {"almond", "walnut", "pecan", "hazelnut", "pistachio", "cashew", "peanut"},
	"soy":    {"soy", "tofu", "lecithin"},
	"fish":   {"fish", "anchovy", "salmon", "tuna"},
	"sesame": {"sesame", "tahini"},
}

func (a *Agent) allergens(in contractx.Input) (contractx.Output, error) {
	r, err := parseRecipe(in.Map("recipe"))
	if err != nil {
		return nil, err
	}

	found := map[string][]string{}
	for _, ing := range r.Ingredients {
		name := strings.ToLower(ing.Name)
		for allergen, words := range allergenKeywords {
			for _, w := range words {
				if strings.Contains(name, w) {
					found[allergen] = append(found[allergen], ing.Name)
					break
				}
			}
		}
	}

	list := make([]string, 0, len(found))
	sources := make(map[string]any, len(found))
	for allergen, ings := range found {
		list = append(list, allergen)
		sources[allergen] = ings
	}
	sort.Strings(list)

	return contractx.Output{
		"recipe":    r.Name,
		"allergens": list,
		"sources":   sources,
		"safe_for":  safeFor(in, list),
	}, nil
}

// safeFor reports which of the customer's declared allergies the recipe avoids.
func safeFor(in contractx.Input, present []string) []string {
	out := []string{}
	for _, raw := range in.Slice("allergies") {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		s = strings.ToLower(strings.TrimSpace(s))
		hit := false
		for _, p := range present {
			if p == s {
				hit = true
				break
			}
		}
		if !hit {
			out = append(out, s)
		}
	}
	return out
}
