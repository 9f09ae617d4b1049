package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	logx "github.com/tanpawarit/agent-teams/pkg/logger"
)

var substitutions = map[string][]string{
	"butter": {"margarine (1:1)", "coconut oil (1:1)", "vegetable oil (3/4 cup per cup of butter)"},
	"milk":   {"oat milk (1:1)", "soy milk (1:1)", "water plus 1 tbsp butter per cup"},
	"eggs":   {"flax egg (1 tbsp ground flax + 3 tbsp water)", "1/4 cup applesauce", "1/4 cup mashed banana"},
	"egg":    {"flax egg (1 tbsp ground flax + 3 tbsp water)", "1/4 cup applesauce", "1/4 cup mashed banana"},
	"flour":  {"gluten-free flour blend (1:1)", "almond flour (1:1, denser crumb)", "oat flour (1 1/3 cup per cup)"},
	"sugar":  {"honey (3/4 cup per cup, reduce liquid)", "maple syrup (3/4 cup per cup, reduce liquid)"},
}

func (a *Agent) substitute(ctx context.Context, in contractx.Input) (contractx.Output, error) {
	ingredient := strings.ToLower(in.String("ingredient"))
	if ingredient == "" {
		return nil, fmt.Errorf("%w: ingredient is required", contractx.ErrValidation)
	}
	reason := in.String("reason")

	if a.advisor != nil {
		payload, _ := json.Marshal(map[string]any{
			"instruction": "List up to three substitutes as a JSON array of strings.",
			"ingredient":  ingredient,
			"reason":      reason,
			"recipe":      in.Map("recipe"),
		})
		reply, err := a.advisor.Complete(ctx, string(payload))
		if err == nil {
			var subs []string
			if jerr := json.Unmarshal([]byte(reply), &subs); jerr == nil && len(subs) > 0 {
				return contractx.Output{"ingredient": ingredient, "substitutes": subs, "source": "model"}, nil
			}
		}
		a.Log(logx.LevelWarn, "model substitution unusable, falling back to table")
	}

	subs, ok := substitutions[ingredient]
	if !ok {
		return nil, fmt.Errorf("%w: no known substitute for %s", contractx.ErrValidation, ingredient)
	}
	return contractx.Output{"ingredient": ingredient, "substitutes": subs, "source": "table"}, nil
}
