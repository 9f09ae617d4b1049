package recipe

import (
	"fmt"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
)

const bookKey = "recipes"

func (a *Agent) store(r Recipe) {
	book := a.book()
	book[strings.ToLower(r.Name)] = r.toMap()
	a.Set(bookKey, book)
}

// book returns the recipe book from the state bag. After LoadState the
// values are plain JSON maps, so entries are kept in that form.
func (a *Agent) book() map[string]any {
	raw, _ := a.Get(bookKey)
	book, ok := raw.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(book))
	for k, v := range book {
		out[k] = v
	}
	return out
}

func (a *Agent) save(in contractx.Input) (contractx.Output, error) {
	r, err := parseRecipe(in.Map("recipe"))
	if err != nil {
		return nil, err
	}
	if r.Name == "" {
		return nil, fmt.Errorf("%w: recipe name is required", contractx.ErrValidation)
	}
	a.store(r)
	return contractx.Output{"saved": r.Name, "count": len(a.book())}, nil
}

// search matches the query against recipe names and ingredient names.
func (a *Agent) search(in contractx.Input) (contractx.Output, error) {
	query := strings.ToLower(in.String("query"))
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}

	book := a.book()
	keys := make([]string, 0, len(book))
	for k := range book {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := []any{}
	for _, k := range keys {
		raw, _ := book[k].(map[string]any)
		r, err := parseRecipe(raw)
		if err != nil {
			continue
		}
		if matches(r, query) {
			results = append(results, raw)
		}
	}
	return contractx.Output{"query": query, "results": results, "count": len(results)}, nil
}

func matches(r Recipe, query string) bool {
	if strings.Contains(strings.ToLower(r.Name), query) {
		return true
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing.Name), query) {
			return true
		}
	}
	return false
}
